// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

// Package gcs wraps Cloud Storage for the agent, flow and test case
// export/import paths.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/bytedance/sonic"

	"github.com/go-dfcx/dfcx-go/cx"
)

// Service reads and writes gs:// objects.
type Service struct {
	client *storage.Client
	logger *slog.Logger
}

// NewService creates a Cloud Storage service.
func NewService(ctx context.Context, opts ...cx.Option) (*Service, error) {
	settings := cx.NewSettings(opts...)
	dialOpts, err := settings.DialOptions(ctx, cx.DefaultLocation)
	if err != nil {
		return nil, fmt.Errorf("resolve dial options: %w", err)
	}
	client, err := storage.NewGRPCClient(ctx, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Service{
		client: client,
		logger: settings.Logger(),
	}, nil
}

// Close releases the underlying client connection.
func (s *Service) Close() error {
	return s.client.Close()
}

// SplitURI splits gs://bucket/path/to/object into bucket and object.
func SplitURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%q is not a gs:// URI", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%q has no bucket/object split", uri)
	}
	return bucket, object, nil
}

// URI builds a fully qualified gs:// path.
func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, strings.TrimPrefix(object, "/"))
}

// Write stores data at a gs:// URI.
func (s *Service) Write(ctx context.Context, uri string, data []byte, contentType string) error {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return err
	}
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish write %s: %w", uri, err)
	}
	s.logger.InfoContext(ctx, "wrote object",
		slog.String("uri", uri),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Read fetches the object at a gs:// URI.
func (s *Service) Read(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

// WriteJSON encodes v as JSON and stores it at a gs:// URI.
func (s *Service) WriteJSON(ctx context.Context, uri string, v any) error {
	data, err := sonic.ConfigFastest.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", uri, err)
	}
	return s.Write(ctx, uri, data, "application/json")
}

// ReadJSON fetches the object at a gs:// URI and decodes it into v.
func (s *Service) ReadJSON(ctx context.Context, uri string, v any) error {
	data, err := s.Read(ctx, uri)
	if err != nil {
		return err
	}
	if err := sonic.ConfigFastest.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", uri, err)
	}
	return nil
}

// ObjectExists reports whether the object at a gs:// URI exists.
func (s *Service) ObjectExists(ctx context.Context, uri string) (bool, error) {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return false, err
	}
	_, err = s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", uri, err)
	}
	return true, nil
}

// BucketExists reports whether the bucket exists.
func (s *Service) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.Bucket(bucket).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat bucket %s: %w", bucket, err)
	}
	return true, nil
}
