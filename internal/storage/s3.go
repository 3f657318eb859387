// Package storage keeps the original uploaded files in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const (
	defaultViewExpiry  = 15 * time.Minute
	defaultContentType = "application/octet-stream"
)

type S3ClientConfig struct {
	// Endpoint overrides the AWS endpoint, e.g. for RustFS or MinIO.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	// ViewExpiry bounds how long a presigned view link stays valid.
	ViewExpiry time.Duration
}

type S3Client struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	viewExpiry time.Duration
}

func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, domain.ErrStorageNotConfigured
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.ViewExpiry
	if expiry <= 0 {
		expiry = defaultViewExpiry
	}

	return &S3Client{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		viewExpiry: expiry,
	}, nil
}

func (c *S3Client) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return domain.NewStorageError("put object "+key, err)
	}
	return nil
}

// PresignDownload returns a time-limited link that opens the file inline in
// the browser under its original file name.
func (c *S3Client) PresignDownload(ctx context.Context, key string) (string, error) {
	disposition := mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)})

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(c.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(disposition),
	}, s3.WithPresignExpires(c.viewExpiry))
	if err != nil {
		return "", domain.NewStorageError("presign "+key, err)
	}
	return req.URL, nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return domain.NewStorageError("delete object "+key, err)
	}
	return nil
}

// Stat returns domain.ErrFileNotStored when key does not exist.
func (c *S3Client) Stat(ctx context.Context, key string) (*domain.StoredFile, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrFileNotStored.WithCause(err)
		}
		return nil, domain.NewStorageError("head object "+key, err)
	}

	return &domain.StoredFile{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
	}, nil
}

// Ping reports whether the bucket is reachable with the configured credentials.
func (c *S3Client) Ping(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

func (c *S3Client) EnsureBucket(ctx context.Context) error {
	err := c.Ping(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return domain.NewStorageError("head bucket "+c.bucket, err)
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return domain.NewStorageError("create bucket "+c.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var (
		noKey    *types.NoSuchKey
		noBucket *types.NoSuchBucket
		notFound *types.NotFound
	)
	return errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound)
}
