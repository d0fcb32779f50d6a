package cassette

import (
	"context"
	"errors"
	"sync"

	"github.com/dvd-rw/dvdrw/o11y"
)

// Action tells the interception adapter what to do with a dispatched request.
type Action int

const (
	// ActionPassThrough means the adapter must perform the live call itself and must not
	// record it.
	ActionPassThrough Action = iota
	// ActionLive means the live call was made and recorded. Outcome is the live outcome.
	ActionLive
	// ActionReplayed means Outcome was replayed from the cassette.
	ActionReplayed
)

func (a Action) String() string {
	switch a {
	case ActionLive:
		return "live"
	case ActionReplayed:
		return "replayed"
	}
	return "pass-through"
}

type Decision struct {
	Action   Action
	Outcome  Outcome
	Cassette *Cassette
}

// LiveFunc performs the real call and reports its outcome, a failure included.
type LiveFunc func(ctx context.Context) Outcome

// Stack is a LIFO of active cassettes. Only the top cassette handles requests.
//
// Pushes and pops must be paired by the caller; use one stack per test when tests run
// in parallel.
type Stack struct {
	mu        sync.Mutex
	cassettes []*Cassette
}

func NewStack() *Stack {
	return &Stack{}
}

var (
	defaultStack     *Stack
	defaultStackOnce sync.Once
)

// DefaultStack returns the process wide stack, used by adapters that were not given one.
func DefaultStack() *Stack {
	defaultStackOnce.Do(func() {
		defaultStack = NewStack()
	})
	return defaultStack
}

type stackKey struct{}

// WithStack returns a child context carrying s.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// StackFromContext returns the stack carried by ctx, or nil.
func StackFromContext(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}

func (s *Stack) Push(c *Cassette) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cassettes = append(s.cassettes, c)
}

// Pop removes c, which must be the top of the stack.
func (s *Stack) Pop(c *Cassette) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	popped := "<nil>"
	if c != nil {
		popped = c.ID()
	}
	n := len(s.cassettes)
	if n == 0 {
		return &PopMismatchError{Popped: popped}
	}
	if top := s.cassettes[n-1]; top != c {
		return &PopMismatchError{Popped: popped, Top: top.ID()}
	}
	s.cassettes[n-1] = nil
	s.cassettes = s.cassettes[:n-1]
	return nil
}

// Top returns the active cassette, or nil when the stack is empty.
func (s *Stack) Top() *Cassette {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cassettes) == 0 {
		return nil
	}
	return s.cassettes[len(s.cassettes)-1]
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cassettes)
}

// Use pushes c for the duration of fn. c is popped however fn exits, including a panic.
func (s *Stack) Use(c *Cassette, fn func() error) (err error) {
	s.Push(c)
	defer func() {
		if perr := s.Pop(c); perr != nil && err == nil {
			err = perr
		}
	}()
	return fn()
}

// Dispatch decides how req is handled by the top cassette.
//
// An empty stack passes the request through. A writable cassette calls live and records
// the outcome. A replay-only cassette replays, or fails with ErrNoMatchingRecording;
// requests its BeforeRecordRequest hook declines are passed through live in either mode.
func (s *Stack) Dispatch(ctx context.Context, req Request, live LiveFunc) (d Decision, err error) {
	ctx, span := o11y.StartSpan(ctx, "cassette: dispatch")
	defer o11y.End(span, &err)
	defer func() {
		if err == nil {
			span.AddRawField("cassette.decision", d.Action.String())
		}
	}()
	span.AddField("method", req.Method())
	span.AddField("host", req.Host())
	span.AddField("path", req.Path())

	c := s.Top()
	if c == nil {
		return Decision{Action: ActionPassThrough}, nil
	}
	span.AddRawField("cassette.id", c.ID())
	span.AddRawField("cassette.mode", c.Mode().String())

	if c.ReplayOnly() {
		out, rerr := c.Resolve(req)
		switch {
		case errors.Is(rerr, ErrNotRecordable):
			return Decision{Action: ActionPassThrough, Cassette: c}, nil
		case rerr != nil:
			return Decision{Cassette: c}, rerr
		}
		return Decision{Action: ActionReplayed, Outcome: out, Cassette: c}, nil
	}

	prepared, ok := c.prepare(req)
	if !ok {
		c.notePassThrough()
		return Decision{Action: ActionPassThrough, Cassette: c}, nil
	}
	out := live(ctx)
	if out == nil {
		return Decision{Cassette: c}, errors.New("live call produced no outcome")
	}
	c.append(prepared, out)
	return Decision{Action: ActionLive, Outcome: out, Cassette: c}, nil
}
