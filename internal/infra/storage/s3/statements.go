package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"shortlet/internal/app/policies"
)

// Options configure the statement archive.
type Options struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// objectStore is the part of the minio client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// StatementArchive stores settlement statements in an S3-compatible bucket,
// one object per booking. Re-archiving a booking overwrites its object.
type StatementArchive struct {
	bucket         string
	prefix         string
	client         objectStore
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewStatementArchive configures the archive using the provided endpoint and credentials.
func NewStatementArchive(opts Options, logger *slog.Logger) (*StatementArchive, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	minioClient, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return newStatementArchive(minioClient, opts.Bucket, opts.Prefix, logger)
}

func newStatementArchive(client objectStore, bucket, prefix string, logger *slog.Logger) (*StatementArchive, error) {
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if prefix = strings.Trim(strings.TrimSpace(prefix), "/"); prefix == "" {
		prefix = "statements"
	}
	return &StatementArchive{bucket: bucket, prefix: prefix, client: client, logger: logger}, nil
}

// StoreStatement uploads statement as JSON and returns the object location.
func (a *StatementArchive) StoreStatement(ctx context.Context, bookingID string, statement []byte) (string, error) {
	bookingID = strings.Trim(strings.TrimSpace(bookingID), "/")
	if bookingID == "" {
		return "", errors.New("s3: booking id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := a.prefix + "/" + bookingID + ".json"
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(statement), int64(len(statement)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	if a.logger != nil {
		a.logger.Info("settlement statement archived", "booking_id", bookingID, "location", location)
	}
	return location, nil
}

func (a *StatementArchive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopArchive drops statements when no bucket is configured.
type NoopArchive struct{}

func (NoopArchive) StoreStatement(context.Context, string, []byte) (string, error) {
	return "", nil
}

var (
	_ policies.StatementArchive = (*StatementArchive)(nil)
	_ policies.StatementArchive = NoopArchive{}
)
