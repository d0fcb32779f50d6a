// Package redisstore keeps cassettes in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/storage"
)

// Store keeps each cassette under a single key.
type Store struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxElapsed time.Duration
}

type Option func(*Store)

// Prefix is prepended to every location to form the key.
func Prefix(p string) Option {
	return func(s *Store) {
		s.prefix = p
	}
}

// TTL expires cassettes after d. Zero keeps them forever.
func TTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// RetryFor bounds how long a failing command is retried.
func RetryFor(d time.Duration) Option {
	return func(s *Store) {
		s.maxElapsed = d
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:     client,
		prefix:     "dvdrw:",
		maxElapsed: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, location string) (_ []byte, err error) {
	ctx, span := o11y.StartSpan(ctx, "storage: redis get")
	defer o11y.End(span, &err)
	key := s.prefix + location
	span.AddField("key", key)

	var data []byte
	err = s.retry(ctx, func() error {
		var err error
		data, err = s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return backoff.Permanent(fmt.Errorf("%w: redis key %s", storage.ErrNotFound, key))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	span.AddField("bytes", len(data))
	return data, nil
}

func (s *Store) Put(ctx context.Context, location string, data []byte) (err error) {
	ctx, span := o11y.StartSpan(ctx, "storage: redis put")
	defer o11y.End(span, &err)
	key := s.prefix + location
	span.AddField("key", key)
	span.AddField("bytes", len(data))

	return s.retry(ctx, func() error {
		return s.client.Set(ctx, key, data, s.ttl).Err()
	})
}

func (s *Store) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = s.maxElapsed
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
