package cassette

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RequestHook is the shape of Options.BeforeRecordRequest.
type RequestHook = func(Request) (Request, bool)

// ResponseHook is the shape of Options.BeforeRecordResponse.
type ResponseHook = func(*Response) *Response

// ChainRequestHooks runs hooks in order. The first hook to decline a request stops the chain.
func ChainRequestHooks(hooks ...RequestHook) RequestHook {
	return func(r Request) (Request, bool) {
		for _, h := range hooks {
			var ok bool
			if r, ok = h(r); !ok {
				return r, false
			}
		}
		return r, true
	}
}

// ChainResponseHooks runs hooks in order, each given the previous hook's result.
func ChainResponseHooks(hooks ...ResponseHook) ResponseHook {
	return func(r *Response) *Response {
		for _, h := range hooks {
			if next := h(r); next != nil {
				r = next
			}
		}
		return r
	}
}

// SkipHosts declines requests to any of hosts, so they are passed through live.
func SkipHosts(hosts ...string) RequestHook {
	return func(r Request) (Request, bool) {
		for _, h := range hosts {
			if strings.EqualFold(h, r.Host()) {
				return r, false
			}
		}
		return r, true
	}
}

// RewriteURL replaces the request URL with the one returned by fn. Requests whose
// rewritten URL does not parse are declined.
func RewriteURL(fn func(Request) string) RequestHook {
	return func(r Request) (Request, bool) {
		nr, err := r.WithURL(fn(r))
		if err != nil {
			return r, false
		}
		return nr, true
	}
}

// DropQuery removes the named query parameters from the URL.
func DropQuery(names ...string) RequestHook {
	return RewriteURL(func(r Request) string {
		raw := r.URL()
		i := strings.IndexByte(raw, '?')
		if i < 0 {
			return raw
		}
		var kept []string
		for _, part := range strings.Split(raw[i+1:], "&") {
			name, _, _ := strings.Cut(part, "=")
			if !containsFold(names, name) {
				kept = append(kept, part)
			}
		}
		if len(kept) == 0 {
			return raw[:i]
		}
		return raw[:i+1] + strings.Join(kept, "&")
	})
}

// RedactJSON deletes the given gjson paths from JSON response bodies. Bodies that are not
// valid JSON are left alone.
func RedactJSON(paths ...string) ResponseHook {
	return func(r *Response) *Response {
		if !gjson.ValidBytes(r.Body) {
			return r
		}
		for _, p := range paths {
			if !gjson.GetBytes(r.Body, p).Exists() {
				continue
			}
			if body, err := sjson.DeleteBytes(r.Body, p); err == nil {
				r.Body = body
			}
		}
		return r
	}
}

// MaskJSON replaces the value at each existing path of a JSON response body with mask.
func MaskJSON(mask string, paths ...string) ResponseHook {
	return func(r *Response) *Response {
		if !gjson.ValidBytes(r.Body) {
			return r
		}
		for _, p := range paths {
			if !gjson.GetBytes(r.Body, p).Exists() {
				continue
			}
			if body, err := sjson.SetBytes(r.Body, p, mask); err == nil {
				r.Body = body
			}
		}
		return r
	}
}

// RedactResponseHeaders removes the named headers, compared case-insensitively.
func RedactResponseHeaders(names ...string) ResponseHook {
	return func(r *Response) *Response {
		kept := r.Headers[:0:0]
		for _, h := range r.Headers {
			if !containsFold(names, h.Name) {
				kept = append(kept, h)
			}
		}
		r.Headers = kept
		return r
	}
}

// HeaderEquals is a Matcher requiring the named header to have the same values on both
// requests.
func HeaderEquals(name string) Matcher {
	return func(recorded, incoming Request) bool {
		a, b := recorded.HeaderValues(name), incoming.HeaderValues(name)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
}
