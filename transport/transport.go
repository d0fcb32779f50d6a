// Package transport intercepts outbound HTTP calls and hands them to a cassette stack.
//
//	client := transport.NewClient(stack)
//
// Requests made through the client are recorded into, or replayed from, the cassette on
// top of the stack.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/dvd-rw/dvdrw/cassette"
)

// Transport is an http.RoundTripper that routes every request through Stack.Dispatch.
type Transport struct {
	// Base performs live calls. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Stack is the stack to dispatch to. When nil the stack carried by the request
	// context is used, and failing that cassette.DefaultStack.
	Stack *cassette.Stack
}

// NewClient returns an http.Client dispatching to stack.
func NewClient(stack *cassette.Stack) *http.Client {
	return &http.Client{Transport: &Transport{Stack: stack}}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	req, err := CaptureRequest(r)
	if err != nil {
		closeBody(r)
		return nil, err
	}

	var (
		liveResp *http.Response
		liveErr  error
		called   bool
	)
	d, err := t.stack(r.Context()).Dispatch(r.Context(), req, func(context.Context) cassette.Outcome {
		called = true
		liveResp, liveErr = t.base().RoundTrip(r)
		if liveErr != nil {
			return Classify(liveErr)
		}
		out, err := captureResponse(liveResp)
		if err != nil {
			liveResp, liveErr = nil, err
			return Classify(err)
		}
		return out
	})
	if err != nil {
		if !called {
			closeBody(r)
		}
		return nil, err
	}

	switch d.Action {
	case cassette.ActionLive:
		return liveResp, liveErr
	case cassette.ActionReplayed:
		closeBody(r)
		return replay(d.Outcome, r, req)
	}
	return t.base().RoundTrip(r)
}

// closeBody releases a request body that is never handed to Base.
func closeBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close()
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) stack(ctx context.Context) *cassette.Stack {
	if t.Stack != nil {
		return t.Stack
	}
	if s := cassette.StackFromContext(ctx); s != nil {
		return s
	}
	return cassette.DefaultStack()
}

// CaptureRequest converts a native request. Headers are emitted in sorted key order with
// their values in order, so identical requests always capture identically.
func CaptureRequest(r *http.Request) (cassette.Request, error) {
	return cassette.NewRequest(r.Method, r.URL.String(), headers(r.Header))
}

// captureResponse reads the body and puts a buffered copy back, so the caller can still
// read the live response.
func captureResponse(resp *http.Response) (*cassette.Response, error) {
	var body []byte
	if resp.Body != nil {
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read live response body: %w", err)
		}
		body = b
		resp.Body = io.NopCloser(bytes.NewReader(b))
	}
	return &cassette.Response{
		Status:  resp.StatusCode,
		Headers: headers(resp.Header),
		Body:    body,
	}, nil
}

func replay(out cassette.Outcome, r *http.Request, req cassette.Request) (*http.Response, error) {
	switch o := out.(type) {
	case *cassette.Response:
		h := http.Header{}
		for _, kv := range o.Headers {
			h.Add(kv.Name, kv.Value)
		}
		return &http.Response{
			Status:        fmt.Sprintf("%d %s", o.Status, http.StatusText(o.Status)),
			StatusCode:    o.Status,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        h,
			Body:          io.NopCloser(bytes.NewReader(o.Body)),
			ContentLength: int64(len(o.Body)),
			Request:       r,
		}, nil
	case *cassette.Failure:
		return nil, Reconstruct(o, req)
	}
	return nil, fmt.Errorf("unknown outcome %T", out)
}

func headers(h http.Header) []cassette.Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []cassette.Header
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, cassette.Header{Name: k, Value: v})
		}
	}
	return out
}
