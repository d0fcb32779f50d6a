package cassette

// Outcome is what a recorded request produced: either a *Response or a *Failure.
type Outcome interface {
	outcome()
}

// Response is a captured HTTP response. A nil Body is distinct from an empty one.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
}

func (*Response) outcome() {}

func (r *Response) clone() *Response {
	c := &Response{Status: r.Status, Headers: copyHeaders(r.Headers)}
	if r.Body != nil {
		c.Body = append([]byte{}, r.Body...)
	}
	return c
}

// FailureKind names the category of a transport failure. The set is closed, but kinds read
// back from storage that are not known to this version are kept verbatim.
type FailureKind string

const (
	FailureConnect   FailureKind = "connect"
	FailureDNS       FailureKind = "dns"
	FailureTimeout   FailureKind = "timeout"
	FailureEOF       FailureKind = "eof"
	FailureReset     FailureKind = "reset"
	FailureTLS       FailureKind = "tls"
	FailureTransport FailureKind = "transport"
)

// Known reports whether k is one of the kinds this package can reconstruct.
func (k FailureKind) Known() bool {
	switch k {
	case FailureConnect, FailureDNS, FailureTimeout, FailureEOF, FailureReset, FailureTLS, FailureTransport:
		return true
	}
	return false
}

// Failure is a transport failure captured in place of a response.
type Failure struct {
	Kind    FailureKind
	Message string

	// Cause is the live error, when there was one. It is never persisted.
	Cause error
}

func (*Failure) outcome() {}

// Err returns the generic error form of the failure.
func (f *Failure) Err() error {
	return &FailureError{Kind: f.Kind, Message: f.Message}
}

// FailureError is the error surfaced for a replayed failure when nothing more specific can
// be built. Reconstructed errors of every kind unwrap to one.
type FailureError struct {
	Kind    FailureKind
	Message string
}

func (e *FailureError) Error() string {
	return e.Message
}

func cloneOutcome(o Outcome) Outcome {
	switch o := o.(type) {
	case *Response:
		return o.clone()
	case *Failure:
		f := *o
		return &f
	}
	return o
}
