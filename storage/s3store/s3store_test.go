package s3store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/storage"
	"github.com/dvd-rw/dvdrw/storage/s3store"
	"github.com/dvd-rw/dvdrw/testing/miniofixture"
	"github.com/dvd-rw/dvdrw/testing/testcontext"
)

func TestStore(t *testing.T) {
	ctx := testcontext.Background()
	fix := miniofixture.Default(ctx, t)
	t.Log(fix)

	client, err := s3store.NewClient(ctx, s3store.Config{
		Endpoint:  fix.URL,
		Region:    fix.Region,
		AccessKey: fix.Key,
		SecretKey: fix.Secret,
	})
	assert.NilError(t, err)
	s := s3store.New(client, fix.Bucket, s3store.Prefix("cassettes/"), s3store.RetryFor(time.Second))

	t.Run("missing", func(t *testing.T) {
		_, err := s.Get(ctx, "nope.json")
		assert.Check(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("put then get", func(t *testing.T) {
		assert.NilError(t, s.Put(ctx, "a.json", []byte(`{"version":1}`)))
		got, err := s.Get(ctx, "a.json")
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(string(got), `{"version":1}`))
	})

	t.Run("loader round trip", func(t *testing.T) {
		stack := cassette.NewStack()
		req := cassette.MustRequest("GET", "https://example.com/")
		l := &storage.Loader{Store: s, Location: "loader.json", Codec: storage.Codec{Compress: true}}

		err := l.Use(ctx, stack, func(*cassette.Cassette) error {
			_, err := stack.Dispatch(ctx, req, func(context.Context) cassette.Outcome {
				return &cassette.Response{Status: 200, Body: []byte("ok")}
			})
			return err
		})
		assert.NilError(t, err)

		c, err := (&storage.Loader{Store: s, Location: "loader.json"}).Load(ctx)
		assert.NilError(t, err)
		assert.Check(t, c.ReplayOnly())
		assert.Check(t, cmp.Equal(c.Len(), 1))
	})
}
