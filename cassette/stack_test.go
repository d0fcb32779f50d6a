package cassette

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/testing/testcontext"
)

type fakeLive struct {
	calls int
	out   Outcome
}

func (f *fakeLive) call(context.Context) Outcome {
	f.calls++
	return f.out
}

func TestStack_PushPop(t *testing.T) {
	s := NewStack()
	a, b := New(Options{}), New(Options{})

	assert.Check(t, s.Top() == nil)
	s.Push(a)
	s.Push(b)
	assert.Check(t, cmp.Equal(s.Len(), 2))
	assert.Check(t, s.Top() == b)

	t.Run("popping below the top fails", func(t *testing.T) {
		err := s.Pop(a)
		assert.Check(t, errors.Is(err, ErrPopMismatch))
		var pm *PopMismatchError
		assert.Assert(t, errors.As(err, &pm))
		assert.Check(t, cmp.Equal(pm.Top, b.ID()))
		assert.Check(t, cmp.Equal(s.Len(), 2))
	})

	t.Run("pops in order", func(t *testing.T) {
		assert.NilError(t, s.Pop(b))
		assert.Check(t, s.Top() == a)
		assert.NilError(t, s.Pop(a))
		assert.Check(t, s.Top() == nil)
	})

	t.Run("popping an empty stack fails", func(t *testing.T) {
		err := s.Pop(a)
		assert.Check(t, errors.Is(err, ErrPopMismatch))
		assert.Check(t, cmp.ErrorContains(err, "empty stack"))
	})

	t.Run("popping nil fails", func(t *testing.T) {
		var pm *PopMismatchError
		assert.Assert(t, errors.As(s.Pop(nil), &pm))
		assert.Check(t, cmp.Equal(pm.Popped, "<nil>"))

		s.Push(a)
		defer func() { assert.Check(t, s.Pop(a)) }()
		assert.Assert(t, errors.As(s.Pop(nil), &pm))
		assert.Check(t, cmp.Equal(pm.Popped, "<nil>"))
		assert.Check(t, cmp.Equal(pm.Top, a.ID()))
		assert.Check(t, cmp.Equal(s.Len(), 1))
	})
}

func TestStack_Use(t *testing.T) {
	s := NewStack()
	c := New(Options{})

	t.Run("pops after an error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Use(c, func() error {
			assert.Check(t, s.Top() == c)
			return boom
		})
		assert.Check(t, errors.Is(err, boom))
		assert.Check(t, cmp.Equal(s.Len(), 0))
	})

	t.Run("pops after a panic", func(t *testing.T) {
		func() {
			defer func() {
				assert.Check(t, recover() != nil)
			}()
			_ = s.Use(c, func() error {
				panic("boom")
			})
		}()
		assert.Check(t, cmp.Equal(s.Len(), 0))
	})

	t.Run("reports a scoping bug", func(t *testing.T) {
		other := New(Options{})
		err := s.Use(c, func() error {
			s.Push(other)
			return nil
		})
		assert.Check(t, errors.Is(err, ErrPopMismatch))
	})
}

func TestStack_Dispatch(t *testing.T) {
	ctx := testcontext.Background()
	req := MustRequest("GET", "https://example.com/thing")

	t.Run("empty stack passes through", func(t *testing.T) {
		live := &fakeLive{out: okResponse("live")}
		d, err := NewStack().Dispatch(ctx, req, live.call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionPassThrough))
		assert.Check(t, cmp.Equal(live.calls, 0))
	})

	t.Run("writable records the live outcome", func(t *testing.T) {
		s := NewStack()
		c := New(Options{BeforeRecordResponse: RedactJSON("token")})
		s.Push(c)
		live := &fakeLive{out: okResponse(`{"token":"t","id":1}`)}

		d, err := s.Dispatch(ctx, req, live.call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionLive))
		assert.Check(t, d.Cassette == c)
		assert.Check(t, cmp.Equal(body(t, d.Outcome), `{"token":"t","id":1}`))
		assert.Check(t, cmp.Equal(live.calls, 1))

		entries := c.Entries()
		assert.Assert(t, cmp.Len(entries, 1))
		assert.Check(t, cmp.Equal(body(t, entries[0].Outcome), `{"id":1}`))
	})

	t.Run("writable records failures", func(t *testing.T) {
		s := NewStack()
		c := New(Options{})
		s.Push(c)
		live := &fakeLive{out: &Failure{Kind: FailureConnect, Message: "conn failed"}}

		d, err := s.Dispatch(ctx, req, live.call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionLive))
		assert.Check(t, cmp.Equal(c.Len(), 1))
	})

	t.Run("writable passes through declined requests", func(t *testing.T) {
		s := NewStack()
		c := New(Options{BeforeRecordRequest: SkipHosts("example.com")})
		s.Push(c)
		live := &fakeLive{out: okResponse("")}

		d, err := s.Dispatch(ctx, req, live.call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionPassThrough))
		assert.Check(t, cmp.Equal(live.calls, 0))
		assert.Check(t, cmp.Equal(c.Len(), 0))
	})

	t.Run("replay only replays and never calls live", func(t *testing.T) {
		s := NewStack()
		c := NewReplayOnly(Options{}, []Entry{{Request: req, Outcome: okResponse("stored")}})
		s.Push(c)
		live := &fakeLive{out: okResponse("live")}

		d, err := s.Dispatch(ctx, req, live.call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionReplayed))
		assert.Check(t, cmp.Equal(body(t, d.Outcome), "stored"))

		_, err = s.Dispatch(ctx, req, live.call)
		assert.Check(t, errors.Is(err, ErrNoMatchingRecording))
		assert.Check(t, cmp.Equal(live.calls, 0))
	})

	t.Run("replay only passes through declined requests", func(t *testing.T) {
		s := NewStack()
		c := NewReplayOnly(Options{BeforeRecordRequest: SkipHosts("example.com")}, nil)
		s.Push(c)

		d, err := s.Dispatch(ctx, req, (&fakeLive{}).call)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(d.Action, ActionPassThrough))
	})

	t.Run("live call without an outcome", func(t *testing.T) {
		s := NewStack()
		s.Push(New(Options{}))
		_, err := s.Dispatch(ctx, req, (&fakeLive{}).call)
		assert.Check(t, cmp.ErrorContains(err, "no outcome"))
	})
}

func TestStack_NestedScopes(t *testing.T) {
	ctx := testcontext.Background()
	onlyInA := MustRequest("GET", "https://example.com/a")
	live := &fakeLive{out: okResponse("live")}

	s := NewStack()
	a := NewReplayOnly(Options{}, []Entry{
		{Request: onlyInA, Outcome: okResponse("from a")},
		{Request: onlyInA, Outcome: okResponse("from a again")},
	})
	b := NewReplayOnly(Options{}, nil)

	err := s.Use(a, func() error {
		err := s.Use(b, func() error {
			_, err := s.Dispatch(ctx, onlyInA, live.call)
			assert.Check(t, errors.Is(err, ErrNoMatchingRecording))
			return nil
		})
		assert.Check(t, err)

		d, err := s.Dispatch(ctx, onlyInA, live.call)
		assert.Check(t, err)
		assert.Check(t, cmp.Equal(body(t, d.Outcome), "from a"))
		return nil
	})
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(live.calls, 0))
	assert.Check(t, cmp.Equal(b.Stats().Missed, 1))
	assert.Check(t, cmp.Equal(a.Stats().Replayed, 1))
}

func TestStack_Context(t *testing.T) {
	s := NewStack()
	ctx := WithStack(context.Background(), s)
	assert.Check(t, StackFromContext(ctx) == s)
	assert.Check(t, StackFromContext(context.Background()) == nil)
	assert.Check(t, DefaultStack() == DefaultStack())
}
