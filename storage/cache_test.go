package storage

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/testing/testcontext"
)

type countingStore struct {
	data map[string][]byte
	gets int
	puts int
}

func newCountingStore() *countingStore {
	return &countingStore{data: map[string][]byte{}}
}

func (s *countingStore) Get(_ context.Context, location string) ([]byte, error) {
	s.gets++
	d, ok := s.data[location]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d...), nil
}

func (s *countingStore) Put(_ context.Context, location string, data []byte) error {
	s.puts++
	s.data[location] = append([]byte(nil), data...)
	return nil
}

func TestCached(t *testing.T) {
	ctx := testcontext.Background()
	under := newCountingStore()
	c, err := NewCached(under, 2)
	assert.NilError(t, err)

	t.Run("misses are not cached", func(t *testing.T) {
		_, err := c.Get(ctx, "a")
		assert.Check(t, errors.Is(err, ErrNotFound))
		_, err = c.Get(ctx, "a")
		assert.Check(t, errors.Is(err, ErrNotFound))
		assert.Check(t, cmp.Equal(under.gets, 2))
	})

	t.Run("reads are cached", func(t *testing.T) {
		under.data["b"] = []byte("bee")
		for i := 0; i < 3; i++ {
			got, err := c.Get(ctx, "b")
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(string(got), "bee"))
		}
		assert.Check(t, cmp.Equal(under.gets, 3))
	})

	t.Run("callers cannot change the cached copy", func(t *testing.T) {
		got, err := c.Get(ctx, "b")
		assert.NilError(t, err)
		got[0] = 'X'
		got, err = c.Get(ctx, "b")
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(string(got), "bee"))
	})

	t.Run("puts write through and refresh the cache", func(t *testing.T) {
		assert.NilError(t, c.Put(ctx, "b", []byte("bop")))
		assert.Check(t, cmp.Equal(string(under.data["b"]), "bop"))
		got, err := c.Get(ctx, "b")
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(string(got), "bop"))
		assert.Check(t, cmp.Equal(under.gets, 3))
	})

	t.Run("purge", func(t *testing.T) {
		c.Purge()
		_, err := c.Get(ctx, "b")
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(under.gets, 4))
	})
}

func TestNewCached_InvalidSize(t *testing.T) {
	_, err := NewCached(newCountingStore(), 0)
	assert.Check(t, err != nil)
}
