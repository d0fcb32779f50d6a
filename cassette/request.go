package cassette

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Header is a single header line. Requests keep headers as an ordered list so duplicates
// and ordering survive a record/replay round trip.
type Header struct {
	Name  string
	Value string
}

// Request is an immutable view of an outgoing HTTP request. The URL is parsed once at
// construction, so the derived host, path, scheme and query never change for the life
// of the value. Use the With* methods to derive modified copies.
type Request struct {
	method  string
	rawURL  string
	headers []Header

	scheme string
	host   string
	path   string
	query  map[string][]string
}

// NewRequest builds a Request, parsing rawURL eagerly.
func NewRequest(method, rawURL string, headers []Header) (Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, fmt.Errorf("invalid request url: %w", err)
	}
	return Request{
		method:  method,
		rawURL:  rawURL,
		headers: copyHeaders(headers),
		scheme:  u.Scheme,
		host:    strings.ToLower(u.Hostname()),
		path:    u.Path,
		query:   parseQuery(u.RawQuery),
	}, nil
}

// MustRequest is like NewRequest but panics on an invalid URL. It is intended for tests
// and static fixtures.
func MustRequest(method, rawURL string, headers ...Header) Request {
	r, err := NewRequest(method, rawURL, headers)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Request) Method() string { return r.method }
func (r Request) URL() string    { return r.rawURL }
func (r Request) Scheme() string { return r.scheme }

// Host is the lowercase hostname, without any port.
func (r Request) Host() string { return r.host }
func (r Request) Path() string { return r.path }

// Headers returns a copy of the header lines in their original order.
func (r Request) Headers() []Header {
	return copyHeaders(r.headers)
}

// Query returns a copy of the parsed query, keyed by parameter name with values in the
// order they appeared. Empty values are dropped.
func (r Request) Query() map[string][]string {
	q := make(map[string][]string, len(r.query))
	for k, v := range r.query {
		q[k] = append([]string(nil), v...)
	}
	return q
}

// HeaderValues returns all values of the named header, compared case-insensitively.
func (r Request) HeaderValues(name string) []string {
	var vals []string
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			vals = append(vals, h.Value)
		}
	}
	return vals
}

// WithURL returns a copy of the request pointing at rawURL.
func (r Request) WithURL(rawURL string) (Request, error) {
	return NewRequest(r.method, rawURL, r.headers)
}

// WithMethod returns a copy of the request with a different method.
func (r Request) WithMethod(method string) Request {
	r.headers = copyHeaders(r.headers)
	r.method = method
	return r
}

// WithHeaders returns a copy of the request with its headers replaced.
func (r Request) WithHeaders(headers []Header) Request {
	r.headers = copyHeaders(headers)
	return r
}

// WithoutHeaders returns a copy of the request without any header whose name matches
// one of names, compared case-insensitively. Other header lines keep their order.
func (r Request) WithoutHeaders(names ...string) Request {
	if len(names) == 0 {
		return r.WithHeaders(r.headers)
	}
	kept := make([]Header, 0, len(r.headers))
	for _, h := range r.headers {
		if !containsFold(names, h.Name) {
			kept = append(kept, h)
		}
	}
	r.headers = kept
	return r
}

// Equal reports whether both requests have the same method, URL and header lines.
func (r Request) Equal(o Request) bool {
	if r.method != o.method || r.rawURL != o.rawURL || len(r.headers) != len(o.headers) {
		return false
	}
	for i := range r.headers {
		if r.headers[i] != o.headers[i] {
			return false
		}
	}
	return true
}

func (r Request) String() string {
	return r.method + " " + r.rawURL
}

// parseQuery groups query values by key. Blank values, and keys left without any value,
// are dropped so "?a=&b=1" and "?b=1" are the same query.
func parseQuery(raw string) map[string][]string {
	q := map[string][]string{}
	vals, _ := url.ParseQuery(raw)
	for k, vs := range vals {
		for _, v := range vs {
			if v != "" {
				q[k] = append(q[k], v)
			}
		}
	}
	return q
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyHeaders(h []Header) []Header {
	if h == nil {
		return nil
	}
	return append([]Header(nil), h...)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
