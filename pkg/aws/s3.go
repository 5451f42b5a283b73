package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates a new S3 client from AWS config. Path-style addressing
// keeps LocalStack buckets reachable.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

// S3Presigner signs PUT uploads into one bucket.
type S3Presigner struct {
	presign    *s3.PresignClient
	bucket     string
	publicBase string
}

// NewS3Presigner builds a presigner for bucket. publicBase is the URL prefix
// objects are served from (a CDN domain or the bucket URL).
func NewS3Presigner(cfg sdkaws.Config, bucket, publicBase string) *S3Presigner {
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &S3Presigner{
		presign:    s3.NewPresignClient(NewS3Client(cfg)),
		bucket:     bucket,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}
}

// PresignPut returns a presigned PUT URL for key, the headers the client must
// send with it, and the public URL the object will have once uploaded.
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, string, error) {
	input := &s3.PutObjectInput{
		Bucket: sdkaws.String(p.bucket),
		Key:    sdkaws.String(key),
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}

	presigned, err := p.presign.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", nil, "", fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return presigned.URL, headers, p.publicBase + "/" + key, nil
}
