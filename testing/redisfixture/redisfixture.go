// Package redisfixture gives each test its own flushed Redis database. Tests are skipped
// when Redis is not available.
package redisfixture

import (
	"context"
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/o11y"
)

type Fixture struct {
	*redis.Client
	DB int
}

type Connection struct {
	Addr string
}

var (
	once          sync.Once
	databaseCount = uint32(0)
)

func Setup(ctx context.Context, t testing.TB, con Connection) *Fixture {
	t.Helper()
	ctx, span := o11y.StartSpan(ctx, "redisfixture: setup")
	defer span.End()

	if con.Addr == "" {
		con.Addr = os.Getenv("DVDRW_TEST_REDIS_ADDR")
	}
	if con.Addr == "" {
		con.Addr = "localhost:6379"
	}

	once.Do(func() {
		readDatabasesCount(ctx, t, con)
	})
	if databaseCount == 0 {
		t.Skip("Redis not available")
	}

	// Packages are tested in parallel, so each test hashes to its own database. Database
	// zero is left alone for humans.
	db := 1 + hash(t.Name(), databaseCount-1)
	span.AddField("db", db)

	client := redis.NewClient(&redis.Options{
		Addr: con.Addr,
		DB:   db,
	})
	t.Cleanup(func() {
		assert.Check(t, client.Close())
	})

	checkRedisConnection(ctx, t, client)
	assert.Assert(t, client.FlushDB(ctx).Err())

	return &Fixture{
		Client: client,
		DB:     db,
	}
}

func checkRedisConnection(ctx context.Context, t testing.TB, client *redis.Client) {
	err := client.Ping(ctx).Err()
	switch {
	case err != nil && err.Error() == "ERR DB index is out of range":
		assert.Assert(t, err)
	case err != nil:
		t.Skip("Redis not available")
	}
}

func readDatabasesCount(ctx context.Context, t testing.TB, con Connection) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: con.Addr,
	})
	defer client.Close()

	if client.Ping(ctx).Err() != nil {
		return
	}

	res := client.ConfigGet(ctx, "databases")
	assert.Assert(t, res.Err())

	v := res.Val()
	assert.Assert(t, cmp.Len(v, 2))

	dbs, err := strconv.ParseInt(v[1].(string), 10, 64)
	assert.Assert(t, err)
	if dbs < 2 {
		return
	}
	databaseCount = uint32(dbs)
}

func hash(s string, n uint32) int {
	h := fnv.New32()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % n)
}
