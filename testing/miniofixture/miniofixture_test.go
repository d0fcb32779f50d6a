package miniofixture

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/dvd-rw/dvdrw/testing/testcontext"
)

func TestSetup(t *testing.T) {
	ctx := testcontext.Background()

	var fix *Fixture
	assert.Assert(t, t.Run("Check bucket is created", func(t *testing.T) {
		fix = Default(ctx, t)
		assert.Check(t, len(fix.Bucket) > 0)

		t.Run("Upload object", func(t *testing.T) {
			_, err := fix.Client.PutObject(ctx, &s3.PutObjectInput{
				Bucket: &fix.Bucket,
				Key:    aws.String("the-key.json"),
				Body:   strings.NewReader("{}"),
			})
			assert.Assert(t, err)
		})
	}))
	if fix == nil || fix.Client == nil {
		return
	}

	t.Run("Check bucket is deleted", func(t *testing.T) {
		_, err := fix.Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: &fix.Bucket,
			Key:    aws.String("the-key.json"),
		})
		assert.Check(t, cmp.ErrorContains(err, "NoSuchBucket"))
	})
}

func TestBucketName(t *testing.T) {
	name := BucketName(t)
	assert.Check(t, strings.HasPrefix(name, "testbucketname-"))
	assert.Check(t, len(name) <= 63)
}
