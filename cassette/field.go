package cassette

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchField selects one component of a request for fingerprinting.
type MatchField int

const (
	MatchHost MatchField = iota + 1
	MatchMethod
	MatchPath
	MatchQuery
	MatchHeaders
	MatchScheme
)

// DefaultMatchFields is used when a cassette is configured with a nil MatchOn.
var DefaultMatchFields = []MatchField{MatchMethod, MatchScheme, MatchHost, MatchPath, MatchQuery}

func (f MatchField) String() string {
	switch f {
	case MatchHost:
		return "host"
	case MatchMethod:
		return "method"
	case MatchPath:
		return "path"
	case MatchQuery:
		return "query"
	case MatchHeaders:
		return "headers"
	case MatchScheme:
		return "scheme"
	}
	return "MatchField(" + strconv.Itoa(int(f)) + ")"
}

// ParseMatchField parses the lowercase name of a field.
func ParseMatchField(s string) (MatchField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host":
		return MatchHost, nil
	case "method":
		return MatchMethod, nil
	case "path":
		return MatchPath, nil
	case "query":
		return MatchQuery, nil
	case "headers":
		return MatchHeaders, nil
	case "scheme":
		return MatchScheme, nil
	}
	return 0, fmt.Errorf("unknown match field %q", s)
}

// ParseMatchFields parses a list of field names, keeping their order.
func ParseMatchFields(names []string) ([]MatchField, error) {
	fields := make([]MatchField, 0, len(names))
	for _, n := range names {
		f, err := ParseMatchField(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Key is a comparable request fingerprint.
type Key string

// Fingerprint projects each field of r, in the order given, into a single key. Every
// component is length prefixed so different tuples can never produce the same key.
func Fingerprint(r Request, fields []MatchField) Key {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.String())
		b.WriteByte('{')
		project(&b, r, f)
		b.WriteByte('}')
	}
	return Key(b.String())
}

func project(b *strings.Builder, r Request, f MatchField) {
	switch f {
	case MatchHost:
		writeString(b, r.host)
	case MatchMethod:
		writeString(b, r.method)
	case MatchPath:
		writeString(b, r.path)
	case MatchScheme:
		writeString(b, r.scheme)
	case MatchQuery:
		keys := sortedKeys(r.query)
		writeInt(b, len(keys))
		for _, k := range keys {
			writeString(b, k)
			vals := r.query[k]
			writeInt(b, len(vals))
			for _, v := range vals {
				writeString(b, v)
			}
		}
	case MatchHeaders:
		writeInt(b, len(r.headers))
		for _, h := range r.headers {
			writeString(b, h.Name)
			writeString(b, h.Value)
		}
	default:
		panic(fmt.Sprintf("cassette: unhandled match field %v", f))
	}
}

func writeString(b *strings.Builder, s string) {
	writeInt(b, len(s))
	b.WriteString(s)
}

func writeInt(b *strings.Builder, n int) {
	b.WriteString(strconv.Itoa(n))
	b.WriteByte(':')
}
