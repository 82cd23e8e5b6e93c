package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by S3Host.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config locates the bucket and decides how public URLs are built.
type S3Config struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	CDNDomain string
}

// S3Host stores product images in an S3 bucket (or LocalStack).
type S3Host struct {
	client S3API
	cfg    S3Config
}

func NewS3Host(client S3API, cfg S3Config) *S3Host {
	return &S3Host{client: client, cfg: cfg}
}

func (h *S3Host) Ready(ctx context.Context) error {
	if h.client == nil || h.cfg.Bucket == "" {
		return fmt.Errorf("%w: s3 bucket not configured", ErrHostUnavailable)
	}
	if _, err := h.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(h.cfg.Bucket)}); err != nil {
		return fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	return nil
}

func (h *S3Host) Upload(ctx context.Context, localPath string, meta Metadata) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	ext := filepath.Ext(localPath)
	if meta.Format != "" {
		ext = "." + strings.TrimPrefix(meta.Format, ".")
	}
	key := h.objectKey(meta.Folder, fmt.Sprintf("product_img_%s%s", uuid.New().String(), ext))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	}
	if len(meta.Tags) > 0 {
		input.Tagging = aws.String(encodeTags(meta.Tags))
	}
	if _, err := h.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return h.publicURL(key), nil
}

func (h *S3Host) objectKey(folder, name string) string {
	return path.Join(strings.Trim(h.cfg.Prefix, "/"), strings.Trim(folder, "/"), name)
}

func (h *S3Host) publicURL(key string) string {
	if h.cfg.CDNDomain != "" {
		domain := strings.TrimPrefix(strings.TrimPrefix(h.cfg.CDNDomain, "https://"), "http://")
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(domain, "/"), key)
	}
	if h.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(h.cfg.Endpoint, "/"), h.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", h.cfg.Bucket, key)
}

// encodeTags renders tags as an S3 tagging query string (tag1=true&tag2=true).
func encodeTags(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, sanitizePublicID(t)+"=true")
	}
	return strings.Join(parts, "&")
}
