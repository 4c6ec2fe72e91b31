// Package minio exports completed consultations to S3 compatible object storage.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultPrefix is the key prefix of uploaded reports.
const DefaultPrefix = "consultations"

// Config holds the connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
	Prefix    string
}

// ObjectAPI is the subset of *minio.Client the sink uses.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Sink implements ports.ReportSink.
type Sink struct {
	client ObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// New connects to the object store and creates the bucket when it is missing.
func New(ctx context.Context, cfg Config, opts ...Option) (*Sink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if cfg.Prefix != "" {
		opts = append([]Option{withPrefix(cfg.Prefix)}, opts...)
	}
	return NewWithClient(ctx, client, cfg.Bucket, opts...)
}

func withPrefix(p string) Option {
	return func(s *Sink) {
		s.prefix = p
	}
}

// NewWithClient wraps an existing client.
func NewWithClient(ctx context.Context, client ObjectAPI, bucket string, opts ...Option) (*Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	s := &Sink{
		client: client,
		bucket: bucket,
		prefix: DefaultPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		s.logger.Info("Created report bucket", "bucket", bucket)
	}
	return s, nil
}

// Key returns the object key of a session's report.
func (s *Sink) Key(sessionID string) string {
	return path.Join(s.prefix, sessionID+".json")
}

// Publish uploads the report as JSON.
func (s *Sink) Publish(ctx context.Context, report ports.Report) error {
	if report.SessionID == "" {
		return fmt.Errorf("report has no session id")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := s.Key(report.SessionID)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"schema-version": report.SchemaVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("upload report %s: %w", key, err)
	}
	s.logger.Debug("Report uploaded", "session_id", report.SessionID, "bucket", s.bucket, "key", key)
	return nil
}

// Fetch downloads a previously published report.
func (s *Sink) Fetch(ctx context.Context, sessionID string) (*ports.Report, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.Key(sessionID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report ports.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
