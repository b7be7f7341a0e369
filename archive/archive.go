// Package archive stores rendered letters in S3-compatible object storage.
// The archive is a secondary copy; the CRM file store remains the system of
// record.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures an archive.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Archive writes rendered PDFs to an object storage bucket.
type Archive struct {
	client *minio.Client
	bucket string
}

// New creates an archive client for the given endpoint and bucket.
func New(opts Options) (*Archive, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}
	return &Archive{client: client, bucket: opts.Bucket}, nil
}

// Store writes one PDF under the given object name.
func (a *Archive) Store(ctx context.Context, name string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	return nil
}
