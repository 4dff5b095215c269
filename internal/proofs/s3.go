package proofs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"billed/internal/core"
	"billed/internal/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// PresignExpiry is how long a presigned proof URL stays valid.
const PresignExpiry = 7 * 24 * time.Hour

// S3Config configures the S3 proof storage.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint targets an S3-compatible server such as LocalStack or MinIO.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL, when set, is used for proof URLs instead of presigned ones.
	PublicBaseURL string
	Prefix        string
}

// S3 keeps proofs in an S3 bucket.
type S3 struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       S3Config
	logger    *log.Logger
}

var _ Storage = (*S3)(nil)

// NewS3 loads the default AWS configuration, overridden by cfg.
func NewS3(ctx context.Context, cfg S3Config, logger *log.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	return &S3{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		logger:    logger.WithComponent(log.ComponentProofs),
	}, nil
}

func (s *S3) objectKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + "/" + key
}

func (s *S3) Save(ctx context.Context, key string, file core.ProofFile) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = ContentType(file.Name)
	}
	objectKey := s.objectKey(key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upload proof to S3",
			"bucket", s.cfg.Bucket,
			"key", objectKey,
			log.FieldError, err.Error())
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}

	if s.cfg.PublicBaseURL != "" {
		return joinURL(s.cfg.PublicBaseURL, objectKey), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get object %s: %w", objectKey, err)
	}
	return req.URL, nil
}

func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", fmt.Errorf("open %s: %w", key, ErrNotFound)
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = ContentType(key)
	}
	return out.Body, contentType, nil
}
