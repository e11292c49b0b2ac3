// Package s3 stores bytes as S3 objects, one object per key.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	pr "github.com/unkn0wn-root/revcache/provider"
)

// expiresMeta holds the unix-nano expiry. S3 lifecycle rules work in days, so
// TTLs are enforced on read.
const expiresMeta = "revcache-expires-at"

var ErrNoBucket = errors.New("s3 provider: bucket is required")

// API is the subset of *s3.Client the provider needs.
type API interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

type Config struct {
	Client API
	Bucket string
	Prefix string // prepended to every key, e.g. "revtasks/"
	// Now is the clock for TTL checks; defaults to time.Now.
	Now func() time.Time
}

type S3 struct {
	api    API
	bucket string
	prefix string
	now    func() time.Time
}

var _ pr.Provider = (*S3)(nil)

func New(cfg Config) (*S3, error) {
	if cfg.Client == nil {
		return nil, errors.New("s3 provider: nil client")
	}
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &S3{api: cfg.Client, bucket: cfg.Bucket, prefix: cfg.Prefix, now: now}, nil
}

// NewFromConfig builds the S3 client from an AWS config.
func NewFromConfig(awsCfg aws.Config, bucket, prefix string, optFns ...func(*awss3.Options)) (*S3, error) {
	return New(Config{Client: awss3.NewFromConfig(awsCfg, optFns...), Bucket: bucket, Prefix: prefix})
}

func (p *S3) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := p.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.prefix + key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer out.Body.Close()

	if exp, ok := out.Metadata[expiresMeta]; ok {
		ns, perr := strconv.ParseInt(exp, 10, 64)
		if perr == nil && p.now().UnixNano() >= ns {
			_ = p.Del(ctx, key)
			return nil, false, nil
		}
	}
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *S3) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	in := &awss3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.prefix + key),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/octet-stream"),
	}
	if ttl > 0 {
		in.Metadata = map[string]string{
			expiresMeta: strconv.FormatInt(p.now().Add(ttl).UnixNano(), 10),
		}
	}
	if _, err := p.api.PutObject(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

// Del is idempotent: S3 reports success for missing objects.
func (p *S3) Del(ctx context.Context, key string) error {
	_, err := p.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.prefix + key),
	})
	return err
}

func (p *S3) Close(context.Context) error { return nil }
