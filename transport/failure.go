package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/dvd-rw/dvdrw/cassette"
)

// Classify captures a live transport error as a failure outcome.
func Classify(err error) *cassette.Failure {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return &cassette.Failure{
		Kind:    kind(err),
		Message: err.Error(),
		Cause:   err,
	}
}

func kind(err error) cassette.FailureKind {
	var (
		fe      *cassette.FailureError
		dnsErr  *net.DNSError
		opErr   *net.OpError
		netErr  net.Error
		hdrErr  tls.RecordHeaderError
		authErr x509.UnknownAuthorityError
		hostErr x509.HostnameError
		certErr x509.CertificateInvalidError
		verErr  *tls.CertificateVerificationError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Kind
	case errors.As(err, &dnsErr):
		return cassette.FailureDNS
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return cassette.FailureTimeout
	case errors.Is(err, syscall.ECONNRESET):
		return cassette.FailureReset
	case errors.As(err, &hdrErr), errors.As(err, &authErr), errors.As(err, &hostErr),
		errors.As(err, &certErr), errors.As(err, &verErr):
		return cassette.FailureTLS
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &opErr) && opErr.Op == "dial":
		return cassette.FailureConnect
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return cassette.FailureEOF
	}
	return cassette.FailureTransport
}

// Reconstruct builds the error a replayed failure is surfaced as. The kind's native error
// is built with the originating request when possible, then from the message alone, and
// otherwise the generic *cassette.FailureError is returned. The result always carries the
// recorded message and unwraps to *cassette.FailureError.
func Reconstruct(f *cassette.Failure, req cassette.Request) error {
	generic := &cassette.FailureError{Kind: f.Kind, Message: f.Message}
	if native := withRequest(f, req); native != nil {
		return &ReplayedError{native: native, failure: generic}
	}
	if native := withMessage(f); native != nil {
		return &ReplayedError{native: native, failure: generic}
	}
	return generic
}

func withRequest(f *cassette.Failure, req cassette.Request) error {
	host := req.Host()
	if host == "" {
		return nil
	}
	switch f.Kind {
	case cassette.FailureConnect:
		return &net.OpError{Op: "dial", Net: "tcp", Addr: hostAddr(host), Err: errors.New(f.Message)}
	case cassette.FailureDNS:
		return &net.DNSError{Err: f.Message, Name: host, IsNotFound: true}
	case cassette.FailureReset:
		return &net.OpError{Op: "read", Net: "tcp", Addr: hostAddr(host), Err: syscall.ECONNRESET}
	}
	return nil
}

func withMessage(f *cassette.Failure) error {
	switch f.Kind {
	case cassette.FailureConnect:
		return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New(f.Message)}
	case cassette.FailureDNS:
		return &net.DNSError{Err: f.Message}
	case cassette.FailureTimeout:
		return timeoutError(f.Message)
	case cassette.FailureEOF:
		return io.ErrUnexpectedEOF
	case cassette.FailureReset:
		return syscall.ECONNRESET
	case cassette.FailureTLS:
		return tls.RecordHeaderError{Msg: f.Message}
	}
	return nil
}

// ReplayedError is a reconstructed transport failure. Its message is the recorded one; it
// unwraps both to the native error for its kind and to *cassette.FailureError.
type ReplayedError struct {
	native  error
	failure *cassette.FailureError
}

func (e *ReplayedError) Error() string {
	return e.failure.Message
}

func (e *ReplayedError) Unwrap() []error {
	return []error{e.native, e.failure}
}

func (e *ReplayedError) Kind() cassette.FailureKind {
	return e.failure.Kind
}

// Timeout lets a replayed timeout satisfy net.Error.
func (e *ReplayedError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.native, &t) && t.Timeout()
}

func (e *ReplayedError) Temporary() bool {
	return false
}

type timeoutError string

func (e timeoutError) Error() string   { return string(e) }
func (e timeoutError) Timeout() bool   { return true }
func (e timeoutError) Temporary() bool { return true }

func (e timeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

type hostAddr string

func (a hostAddr) Network() string { return "tcp" }
func (a hostAddr) String() string  { return string(a) }
