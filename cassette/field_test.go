package cassette

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Request
		fields []MatchField
		same   bool
	}{
		{
			name:   "host is case insensitive and ignores the port",
			a:      MustRequest("GET", "http://Example.COM:8080/x"),
			b:      MustRequest("GET", "http://example.com/y"),
			fields: []MatchField{MatchHost},
			same:   true,
		},
		{
			name:   "method case is kept",
			a:      MustRequest("GET", "http://example.com/"),
			b:      MustRequest("get", "http://example.com/"),
			fields: []MatchField{MatchMethod},
			same:   false,
		},
		{
			name:   "query key order does not matter",
			a:      MustRequest("GET", "http://example.com/?a=1&b=2"),
			b:      MustRequest("GET", "http://example.com/?b=2&a=1"),
			fields: []MatchField{MatchQuery},
			same:   true,
		},
		{
			name:   "query value order matters",
			a:      MustRequest("GET", "http://example.com/?a=1&a=2"),
			b:      MustRequest("GET", "http://example.com/?a=2&a=1"),
			fields: []MatchField{MatchQuery},
			same:   false,
		},
		{
			name:   "blank query values are ignored",
			a:      MustRequest("GET", "http://example.com/?a=1&b="),
			b:      MustRequest("GET", "http://example.com/?a=1"),
			fields: []MatchField{MatchQuery},
			same:   true,
		},
		{
			name:   "header order matters",
			a:      MustRequest("GET", "http://example.com/", Header{"A", "1"}, Header{"B", "2"}),
			b:      MustRequest("GET", "http://example.com/", Header{"B", "2"}, Header{"A", "1"}),
			fields: []MatchField{MatchHeaders},
			same:   false,
		},
		{
			name:   "unselected fields are ignored",
			a:      MustRequest("GET", "http://example.com/a"),
			b:      MustRequest("POST", "https://other.com/a"),
			fields: []MatchField{MatchPath},
			same:   true,
		},
		{
			name:   "scheme",
			a:      MustRequest("GET", "http://example.com/a"),
			b:      MustRequest("GET", "https://example.com/a"),
			fields: []MatchField{MatchScheme},
			same:   false,
		},
		{
			name:   "components cannot run into each other",
			a:      MustRequest("GET", "http://example.com/?ab=c"),
			b:      MustRequest("GET", "http://example.com/?a=bc"),
			fields: []MatchField{MatchQuery},
			same:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := Fingerprint(tt.a, tt.fields), Fingerprint(tt.b, tt.fields)
			assert.Check(t, cmp.Equal(ka == kb, tt.same), "%q vs %q", ka, kb)
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	r := MustRequest("GET", "http://example.com/p?z=1&y=2&x=3", Header{"A", "1"})
	fields := []MatchField{MatchQuery, MatchHost, MatchHeaders, MatchMethod, MatchPath, MatchScheme}
	first := Fingerprint(r, fields)
	for i := 0; i < 20; i++ {
		assert.Assert(t, cmp.Equal(Fingerprint(r, fields), first))
	}
}

func TestFingerprint_FieldOrderMatters(t *testing.T) {
	r := MustRequest("GET", "http://example.com/p")
	assert.Check(t, Fingerprint(r, []MatchField{MatchHost, MatchPath}) != Fingerprint(r, []MatchField{MatchPath, MatchHost}))
}

func TestParseMatchFields(t *testing.T) {
	fields, err := ParseMatchFields([]string{"Method", " host", "query", "headers", "path", "scheme"})
	assert.NilError(t, err)
	assert.Check(t, cmp.DeepEqual(fields, []MatchField{MatchMethod, MatchHost, MatchQuery, MatchHeaders, MatchPath, MatchScheme}))

	for _, f := range fields {
		back, err := ParseMatchField(f.String())
		assert.Check(t, err)
		assert.Check(t, cmp.Equal(back, f))
	}

	_, err = ParseMatchFields([]string{"method", "body"})
	assert.Check(t, cmp.ErrorContains(err, `unknown match field "body"`))
}
