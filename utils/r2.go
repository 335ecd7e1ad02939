package utils

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// uploadPrefix is the bucket folder for archived question uploads.
const uploadPrefix = "question-uploads"

type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// R2Archiver keeps a copy of every admin upload in a Cloudflare R2 bucket.
type R2Archiver struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
	now        func() time.Time
}

func NewR2Archiver(ctx context.Context, opts R2Options) (*R2Archiver, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	cdn := strings.TrimRight(opts.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint + "/" + opts.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Archiver{client: client, bucket: opts.Bucket, cdnBaseURL: cdn, now: time.Now}, nil
}

// Archive uploads content and returns its public URL.
func (a *R2Archiver) Archive(ctx context.Context, filename string, content []byte, contentType string) (string, error) {
	key := UploadKey(filename, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.cdnBaseURL, key), nil
}

// UploadKey builds "question-uploads/<date>/<slug>-<id><ext>" for filename.
func UploadKey(filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%s/%s-%s%s", uploadPrefix, at.UTC().Format("2006-01-02"), base, uuid.NewString()[:8], ext)
}
