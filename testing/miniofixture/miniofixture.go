// Package miniofixture creates a fresh bucket per test in a local minio, and removes it
// again when the test ends. Tests are skipped when minio is not running, unless on CI.
package miniofixture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"gotest.tools/v3/assert"

	"github.com/dvd-rw/dvdrw/config/secret"
	"github.com/dvd-rw/dvdrw/o11y"
)

type Fixture struct {
	Client *s3.Client
	URL    string
	Key    secret.String
	Secret secret.String
	Bucket string
	Region string
	// ForceLocal fails, rather than skips, a local run when minio is not running.
	ForceLocal bool
}

// Default sets up and returns the default minio fixture
func Default(ctx context.Context, t testing.TB) *Fixture {
	fix := &Fixture{}
	Setup(ctx, t, fix)
	return fix
}

// Setup fills in defaults for any unset fields of fix, creates the bucket and registers
// its removal with t.Cleanup.
func Setup(ctx context.Context, t testing.TB, fix *Fixture) {
	t.Helper()
	ctx, span := o11y.StartSpan(ctx, "miniofixture: setup")
	defer span.End()

	setConfigDefaults(t, fix)
	skipIfNotRunning(t, fix)
	span.AddField("bucket", fix.Bucket)

	assert.Assert(t, fix.Client == nil, "fixture client is expected to be nil")
	fix.Client = newClient(fix)

	_, err := fix.Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(fix.Bucket),
	})
	assert.NilError(t, err, "create bucket failed")

	t.Cleanup(func() {
		fix.clean(t)
	})
}

func setConfigDefaults(t testing.TB, fix *Fixture) {
	if fix.URL == "" {
		fix.URL = envOr("DVDRW_TEST_MINIO_URL", "http://localhost:9123")
	}
	if fix.Key.Empty() {
		fix.Key = "minio"
	}
	if fix.Secret.Empty() {
		fix.Secret = "minio123"
	}
	if fix.Bucket == "" {
		fix.Bucket = BucketName(t)
	}
	if fix.Region == "" {
		fix.Region = "us-east-1"
	}
}

func skipIfNotRunning(t testing.TB, fix *Fixture) {
	t.Helper()
	if fix.ForceLocal || strings.EqualFold(os.Getenv("CI"), "true") {
		return
	}

	u, err := url.Parse(fix.URL)
	assert.Assert(t, err)

	conn, err := net.DialTimeout("tcp", u.Host, 2*time.Second)
	if err != nil {
		t.Skip("Minio is not running")
	}
	_ = conn.Close()
}

// BucketName derives a valid, probably unique, bucket name from the test name.
func BucketName(t testing.TB) string {
	t.Helper()

	r := rand.Uint32() >> 8 //#nosec:G404 // just to avoid matching bucket names in case of failed cleanup
	prefix := strings.ToLower(t.Name())
	prefix = strings.ReplaceAll(prefix, "_", "-")
	prefix = strings.ReplaceAll(prefix, "/", "-")

	// 54 characters leave room for the dash and an 8 digit suffix within the 63 allowed.
	if len(prefix) > 54 {
		prefix = prefix[:54]
	}
	return prefix + "-" + strconv.Itoa(int(r))
}

func newClient(fix *Fixture) *s3.Client {
	return s3.New(s3.Options{
		Region:       fix.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(fix.Key.Raw(), fix.Secret.Raw(), ""),
		BaseEndpoint: aws.String(fix.URL),
		UsePathStyle: true,
	})
}

func (f *Fixture) clean(t testing.TB) {
	t.Helper()
	ctx := context.Background()

	var err error
	for i := 0; i < 5; i++ {
		f.emptyBucket(ctx, t)
		_, err = f.Client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: &f.Bucket,
		})
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	assert.NilError(t, err)
}

func (f *Fixture) emptyBucket(ctx context.Context, t testing.TB) {
	listReq := &s3.ListObjectsV2Input{Bucket: &f.Bucket}
	for {
		out, err := f.Client.ListObjectsV2(ctx, listReq)
		if err != nil {
			e := &types.NoSuchBucket{}
			if errors.As(err, &e) {
				return
			}
			t.Fatalf("Failed to list objects: %v", err)
		}

		for _, o := range out.Contents {
			_, err := f.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(f.Bucket),
				Key:    o.Key,
			})
			if err != nil {
				t.Fatalf("Failed to delete object: %v", err)
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			return
		}
		listReq.ContinuationToken = out.NextContinuationToken
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// String describes the fixture without its credentials.
func (f *Fixture) String() string {
	return fmt.Sprintf("minio %s bucket %s", f.URL, f.Bucket)
}
