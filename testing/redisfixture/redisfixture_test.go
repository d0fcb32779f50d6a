package redisfixture

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/testing/testcontext"
)

func TestSetup(t *testing.T) {
	ctx := testcontext.Background()
	fix := Setup(ctx, t, Connection{})
	assert.Check(t, fix.Ping(ctx).Err())
	assert.Check(t, fix.DB > 0)
}

func TestHash(t *testing.T) {
	assert.Check(t, cmp.Equal(hash("TestSetup", 15), hash("TestSetup", 15)))
	assert.Check(t, hash("TestSetup", 15) < 15)
}
