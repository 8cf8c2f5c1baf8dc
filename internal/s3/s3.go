// Package s3 wraps the AWS SDK v2 S3 client for media object storage. A
// custom endpoint makes it work against S3-compatible stores as well.
package s3

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
)

// Client wraps the S3 client for the media bucket.
type Client struct {
	client *s3.Client
	bucket string
}

// NewClient creates and configures the S3 client from the app configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.S3Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "",
		)),
	}

	if cfg.S3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				SigningRegion: cfg.S3Region,
			}, nil
		})
		opts = append(opts, awsConfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing is what MinIO and Spaces expect
		if cfg.S3Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	log.Printf("[S3] Client initialized for bucket %s (region %s)", cfg.S3Bucket, cfg.S3Region)

	return &Client{
		client: client,
		bucket: cfg.S3Bucket,
	}, nil
}

// UploadFile stores an object under the given key.
func (c *Client) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PresignGet generates a presigned download URL for an object.
func (c *Client) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.client)
	presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", key, err)
	}
	return presigned.URL, nil
}

// DeleteFile removes an object.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// MediaKey builds a unique object key for an uploaded media file, keeping
// the original file extension.
func MediaKey(ext string) string {
	return path.Join("media", uuid.New().String()+ext)
}
