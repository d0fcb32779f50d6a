package closer

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestErrorHandler(t *testing.T) {
	errClose := errors.New("close failed")
	errWork := errors.New("work failed")

	failing := func(called *bool) closerFunc {
		return func() error {
			*called = true
			return errClose
		}
	}

	t.Run("close error", func(t *testing.T) {
		called := false
		var err error
		ErrorHandler(failing(&called), &err)
		assert.Check(t, called)
		assert.Check(t, cmp.ErrorIs(err, errClose))
	})

	t.Run("no error", func(t *testing.T) {
		var err error
		Func(func() error { return nil }, &err)
		assert.Check(t, err)
	})

	t.Run("both fail", func(t *testing.T) {
		called := false
		err := errWork
		ErrorHandler(failing(&called), &err)
		assert.Check(t, cmp.ErrorIs(err, errWork))
		assert.Check(t, cmp.ErrorIs(err, errClose))
	})

	t.Run("keeps the work error", func(t *testing.T) {
		err := errWork
		Func(func() error { return nil }, &err)
		assert.Check(t, cmp.Equal(err, errWork))
	})
}
