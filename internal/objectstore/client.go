package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/Skotchmaster/smart_inventory/internal/config"
)

const defaultBucketWait = 30 * time.Second

// Client talks to an S3-compatible object store (AWS S3 or MinIO).
type Client struct {
	s3Client *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

func NewClient(ctx context.Context, cfg *appconfig.Config) (*Client, error) {
	if cfg.S3_ACCESS_KEY == "" || cfg.S3_SECRET_KEY == "" || cfg.S3_BUCKET == "" || cfg.S3_ENDPOINT == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET and S3_ENDPOINT must be set")
	}

	scheme := "http"
	if cfg.S3_USE_SSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, cfg.S3_ENDPOINT)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3_REGION),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3_ACCESS_KEY, cfg.S3_SECRET_KEY, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		// MinIO requires path-style addressing
		o.UsePathStyle = true
	})

	client := &Client{
		s3Client: s3Client,
		uploader: manager.NewUploader(s3Client),
		bucket:   cfg.S3_BUCKET,
		baseURL:  fmt.Sprintf("%s/%s", endpointURL, cfg.S3_BUCKET),
	}

	if err := client.ensureBucket(ctx, cfg.S3_REGION); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) ensureBucket(ctx context.Context, region string) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		},
	})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}

	waiter := s3.NewBucketExistsWaiter(c.s3Client)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	}, defaultBucketWait); err != nil {
		return fmt.Errorf("wait for bucket %s: %w", c.bucket, err)
	}

	return nil
}

// UploadFile stores the object under key with public-read visibility and
// returns its public URL.
func (c *Client) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", key, c.bucket, err)
	}

	return fmt.Sprintf("%s/%s", c.baseURL, key), nil
}

func (c *Client) GetFile(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s from bucket %s: %w", key, c.bucket, err)
	}
	return out.Body, nil
}

func (c *Client) DeleteFile(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s from bucket %s: %w", key, c.bucket, err)
	}
	return nil
}
