package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"

	"github.com/dvd-rw/dvdrw/cassette"
	"github.com/dvd-rw/dvdrw/closer"
	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/storage"
	"github.com/dvd-rw/dvdrw/storage/redisstore"
	"github.com/dvd-rw/dvdrw/storage/s3store"
)

// app is bound to every command's Run method.
type app struct {
	ctx context.Context
	cli *cli
	out io.Writer

	mu    sync.Mutex
	s3    *s3.Client
	redis map[string]*redis.Client
}

// open resolves a location to the store holding it and the key within that store.
//
//	path/to/file.json
//	s3://bucket/key.json
//	redis://host:port/key
func (a *app) open(location string) (storage.Store, string, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("invalid location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, "", fmt.Errorf("invalid location %q: want s3://bucket/key", location)
		}
		client, err := a.s3Client()
		if err != nil {
			return nil, "", err
		}
		return s3store.New(client, u.Host), key, nil

	case strings.HasPrefix(location, "redis://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("invalid location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, "", fmt.Errorf("invalid location %q: want redis://host:port/key", location)
		}
		return redisstore.New(a.redisClient(u.Host), redisstore.Prefix("")), key, nil
	}
	return storage.FileStore{}, location, nil
}

// load reads and decodes the cassette at location.
func (a *app) load(ctx context.Context, location string) ([]cassette.Entry, error) {
	store, key, err := a.open(location)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return storage.Codec{}.Decode(data)
}

func (a *app) save(ctx context.Context, location string, codec storage.Codec, c *cassette.Cassette) error {
	store, key, err := a.open(location)
	if err != nil {
		return err
	}
	data, err := codec.Encode(c)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

func (a *app) s3Client() (*s3.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.s3 != nil {
		return a.s3, nil
	}
	client, err := s3store.NewClient(a.ctx, s3store.Config{
		Endpoint:  a.cli.S3Endpoint,
		Region:    a.cli.S3Region,
		AccessKey: a.cli.S3AccessKey,
		SecretKey: a.cli.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	a.s3 = client
	return client, nil
}

func (a *app) redisClient(addr string) *redis.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.redis == nil {
		a.redis = map[string]*redis.Client{}
	}
	if c, ok := a.redis[addr]; ok {
		return c
	}
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cli.RedisPassword.Raw(),
	})
	a.redis[addr] = c
	return c
}

func (a *app) close(err *error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for addr, c := range a.redis {
		closer.ErrorHandler(c, err)
		delete(a.redis, addr)
	}
}

// span starts the span for a command.
func (a *app) span(name string) (context.Context, o11y.Span) {
	return o11y.StartSpan(a.ctx, "cli: "+name)
}
