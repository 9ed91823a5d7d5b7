package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Options configures an S3Store for AWS or an S3-compatible endpoint.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store writes objects with PutObject and signs URLs with the SDK presigner.
// Put returns s3://bucket/key locators.
type S3Store struct {
	client  s3Putter
	presign s3Presigner
	bucket  string
}

// NewS3Store loads AWS configuration and builds the client. Explicit keys
// override the default credential chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &S3Store{client: client, presign: s3.NewPresignClient(client), bucket: opts.Bucket}, nil
}

func (s *S3Store) DefaultBucket() string { return s.bucket }

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", wrapS3Error("put", s.bucket, key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Store) SignURL(ctx context.Context, bucket, key string, expiry time.Duration, method string) (string, error) {
	m, err := checkMethod(method)
	if err != nil {
		return "", err
	}
	if bucket == "" {
		bucket = s.bucket
	}
	key = strings.TrimLeft(key, "/")
	withExpiry := s3.WithPresignExpires(expiry)

	var req *v4.PresignedHTTPRequest
	switch m {
	case http.MethodPut:
		req, err = s.presign.PresignPutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}, withExpiry)
	default:
		req, err = s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}, withExpiry)
	}
	if err != nil {
		return "", wrapS3Error("presign", bucket, key, err)
	}
	return req.URL, nil
}

// wrapS3Error maps SDK failures onto storage sentinels.
func wrapS3Error(op, bucket, key string, err error) error {
	var (
		noSuchKey    *types.NoSuchKey
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	sentinel := ErrUnavailable
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound), errors.As(err, &noSuchBucket):
		sentinel = ErrObjectNotFound
	default:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NoSuchKey", "NotFound", "NoSuchBucket":
				sentinel = ErrObjectNotFound
			case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
				sentinel = ErrAccessDenied
			}
		}
	}
	return fmt.Errorf("%w: %s s3://%s/%s: %v", sentinel, op, bucket, key, err)
}

var _ Store = (*S3Store)(nil)
