// Package s3store keeps cassettes in an S3 compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/dvd-rw/dvdrw/config/secret"
	"github.com/dvd-rw/dvdrw/o11y"
	"github.com/dvd-rw/dvdrw/storage"
)

type Config struct {
	// Endpoint overrides the S3 endpoint, e.g. for minio. Path style addressing is used
	// when it is set.
	Endpoint string
	Region   string

	// AccessKey and SecretKey are used when both are set, otherwise the default AWS
	// credential chain applies.
	AccessKey secret.String
	SecretKey secret.String
}

// NewClient builds an S3 client from the config.
func NewClient(ctx context.Context, conf Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if conf.Region != "" {
		opts = append(opts, config.WithRegion(conf.Region))
	}
	if !conf.AccessKey.Empty() && !conf.SecretKey.Empty() {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AccessKey.Raw(), conf.SecretKey.Raw(), "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Store reads and writes cassettes as objects in Bucket. Locations are object keys,
// prefixed with Prefix.
type Store struct {
	bucket     string
	prefix     string
	uploader   *manager.Uploader
	downloader *manager.Downloader
	maxElapsed time.Duration
}

type Option func(*Store)

// Prefix is prepended to every location.
func Prefix(p string) Option {
	return func(s *Store) {
		s.prefix = p
	}
}

// RetryFor bounds how long a failing request is retried.
func RetryFor(d time.Duration) Option {
	return func(s *Store) {
		s.maxElapsed = d
	}
}

func New(client *s3.Client, bucket string, opts ...Option) *Store {
	s := &Store{
		bucket:     bucket,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		maxElapsed: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, location string) (_ []byte, err error) {
	ctx, span := o11y.StartSpan(ctx, "storage: s3 get")
	defer o11y.End(span, &err)
	key := s.prefix + location
	span.AddField("bucket", s.bucket)
	span.AddField("key", key)

	var data []byte
	err = s.retry(ctx, func() error {
		buf := manager.NewWriteAtBuffer(nil)
		_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return backoff.Permanent(fmt.Errorf("%w: s3://%s/%s", storage.ErrNotFound, s.bucket, key))
		}
		if err != nil {
			return err
		}
		data = buf.Bytes()
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.AddField("bytes", len(data))
	return data, nil
}

func (s *Store) Put(ctx context.Context, location string, data []byte) (err error) {
	ctx, span := o11y.StartSpan(ctx, "storage: s3 put")
	defer o11y.End(span, &err)
	key := s.prefix + location
	span.AddField("bucket", s.bucket)
	span.AddField("key", key)
	span.AddField("bytes", len(data))

	return s.retry(ctx, func() error {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
}

func (s *Store) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = s.maxElapsed
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
