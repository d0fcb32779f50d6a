package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestFromContext(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		p := FromContext(context.Background())
		assert.Check(t, cmp.Equal(p, defaultProvider))
	})

	t.Run("with provider in context", func(t *testing.T) {
		expected := &noopProvider{}
		ctx := WithProvider(context.Background(), expected)
		assert.Check(t, cmp.Equal(FromContext(ctx), Provider(expected)))
	})
}

func TestLog_WithoutProvider(t *testing.T) {
	Log(context.Background(), "foo", Field("name", "value"))
}

func TestStartSpan_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	nCtx, span := StartSpan(ctx, "foo")
	assert.Check(t, span != nil, "should have returned a noop span")
	assert.Check(t, cmp.Equal(ctx, nCtx), "should have returned ctx unmodified")
}

func TestAddResultToSpan(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		result  string
		error   string
		warning string
	}{
		{
			name:   "all-good",
			result: "success",
		},
		{
			name:   "normal-error",
			err:    errors.New("my error"),
			result: "error",
			error:  "my error",
		},
		{
			name:    "warning",
			err:     NewWarning("handled error"),
			result:  "success",
			warning: "handled error",
		},
		{
			name:    "wrapped-warning",
			err:     fmt.Errorf("wrapped: %w", NewWarning("not recordable")),
			result:  "success",
			warning: "wrapped: not recordable",
		},
		{
			name:    "context-canceled",
			err:     context.Canceled,
			result:  "canceled",
			warning: "context canceled",
		},
		{
			name:    "wrapped-deadline-exceeded",
			err:     fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
			result:  "canceled",
			warning: "wrapped: context deadline exceeded",
		},
	}

	checkField := func(t *testing.T, span *fakeSpan, key, expect string) {
		if expect != "" {
			assert.Check(t, cmp.Equal(expect, span.fields[key]))
		} else {
			_, ok := span.fields[key]
			assert.Check(t, !ok)
		}
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := newFakeSpan()
			AddResultToSpan(span, tt.err)
			checkField(t, span, "result", tt.result)
			checkField(t, span, "error", tt.error)
			checkField(t, span, "warning", tt.warning)
		})
	}
}

func TestEnd(t *testing.T) {
	span := newFakeSpan()
	func() (err error) {
		defer End(span, &err)
		return errors.New("late error")
	}()
	assert.Check(t, span.ended)
	assert.Check(t, cmp.Equal(span.fields["error"], "late error"))
}

func TestLogError(t *testing.T) {
	p := &fakeProvider{}
	ctx := WithProvider(context.Background(), p)

	LogError(ctx, "save failed", errors.New("disk full"), Field("location", "a.json"))
	assert.Check(t, cmp.Equal(p.span.fields["app.location"], "a.json"))
	assert.Check(t, cmp.Equal(p.span.fields["error"], "disk full"))
	assert.Check(t, p.span.ended)
}

func newFakeSpan() *fakeSpan {
	return &fakeSpan{fields: map[string]interface{}{}}
}

type fakeSpan struct {
	fields map[string]interface{}
	ended  bool
}

func (s *fakeSpan) AddField(key string, val interface{}) {
	s.fields["app."+key] = val
}

func (s *fakeSpan) AddRawField(key string, val interface{}) {
	s.fields[key] = val
}

func (s *fakeSpan) End() {
	s.ended = true
}

type fakeProvider struct {
	Provider
	span *fakeSpan
}

func (p *fakeProvider) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	p.span = newFakeSpan()
	return ctx, p.span
}
