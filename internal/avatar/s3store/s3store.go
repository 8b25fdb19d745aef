// Package s3store is the S3 avatar.Backend. Object calls go through a
// circuit breaker so an unreachable store fails fast into the fetch
// fallback chain.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/pkg/breaker"
)

// DefaultPrefix is the key prefix avatars are stored under.
const DefaultPrefix = "avatars/"

// maxObjectBytes caps how much of an object Get will read.
const maxObjectBytes = 20 << 20

// Config holds S3 connection settings.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Prefix          string
}

// ObjectAPI is the subset of *s3.Client the backend calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewClient builds an S3 client. With StrategyStatic the configured access
// key is used; with StrategyAmbient the SDK default chain resolves
// credentials.
func NewClient(ctx context.Context, cfg Config, strategy CredentialStrategy) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if strategy == StrategyStatic && cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// Backend implements avatar.Backend on one bucket.
type Backend struct {
	api     ObjectAPI
	bucket  string
	prefix  string
	breaker *breaker.Breaker
}

// New returns a backend over api. A nil br builds a breaker that ignores
// missing objects when counting failures.
func New(api ObjectAPI, cfg Config, br *breaker.Breaker, logger *slog.Logger) *Backend {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if br == nil {
		br = breaker.New(BreakerConfig(), nil, logger)
	}
	return &Backend{api: api, bucket: cfg.Bucket, prefix: prefix, breaker: br}
}

// BreakerConfig is the breaker setup for S3 calls: a missing object is an
// answer, not a failure.
func BreakerConfig() breaker.Config {
	cfg := breaker.DefaultConfig("s3-avatars")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || IsNotFound(err)
	}
	return cfg
}

// Name identifies the backend in logs and metrics.
func (b *Backend) Name() string { return "s3" }

// Ref is the object key: the configured prefix plus filename.
func (b *Backend) Ref(filename string) string { return b.prefix + filename }

// Put uploads data under key ref through the breaker.
func (b *Backend) Put(ctx context.Context, ref string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(ref),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := b.api.PutObject(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", ref, err)
	}
	return nil
}

// Get downloads the object at key ref. A missing key wraps
// avatar.ErrObjectNotFound and does not count against the breaker; any other
// failure, including an open breaker, is transient.
func (b *Backend) Get(ctx context.Context, ref string) (*avatar.Object, error) {
	var obj *avatar.Object
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(ref),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		ct := aws.ToString(out.ContentType)
		if ct == "" {
			ct = avatar.ContentType(ref, data)
		}
		obj = &avatar.Object{Data: data, ContentType: ct}
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", ref, avatar.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", ref, err)
	}
	return obj, nil
}

// Delete removes the object at key ref. A missing key wraps
// avatar.ErrObjectNotFound.
func (b *Backend) Delete(ctx context.Context, ref string) error {
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(ref),
		})
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%s: %w", ref, avatar.ErrObjectNotFound)
		}
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	return nil
}

// IsNotFound reports whether err means the key does not exist, as opposed
// to a transient or credential failure.
func IsNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
