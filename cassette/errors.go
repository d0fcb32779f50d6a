package cassette

import (
	"errors"
	"fmt"

	"github.com/dvd-rw/dvdrw/o11y"
)

var (
	ErrWriteOnReplayOnly   = errors.New("cannot record into a replay-only cassette")
	ErrNoMatchingRecording = errors.New("no matching recording")
	ErrPopMismatch         = errors.New("cassette is not the top of the stack")

	// ErrNotRecordable is returned when the BeforeRecordRequest hook declines a request.
	// It is a warning, callers pass such requests through to the network.
	ErrNotRecordable = o11y.NewWarning("request is not recordable")
)

// NoMatchError reports a replay miss. Consumed is true when matching entries exist but
// have all been replayed already.
type NoMatchError struct {
	Request  Request
	Consumed bool
}

func (e *NoMatchError) Error() string {
	if e.Consumed {
		return fmt.Sprintf("%v: %s (all matching interactions were already replayed)", ErrNoMatchingRecording, e.Request)
	}
	return fmt.Sprintf("%v: %s (no recorded interaction)", ErrNoMatchingRecording, e.Request)
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatchingRecording
}

type PopMismatchError struct {
	Popped string
	Top    string
}

func (e *PopMismatchError) Error() string {
	if e.Top == "" {
		return fmt.Sprintf("%v: popped %s from an empty stack", ErrPopMismatch, e.Popped)
	}
	return fmt.Sprintf("%v: popped %s but the top is %s", ErrPopMismatch, e.Popped, e.Top)
}

func (e *PopMismatchError) Unwrap() error {
	return ErrPopMismatch
}
