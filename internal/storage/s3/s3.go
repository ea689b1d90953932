// Package s3 implements storage.ObjectStore against an S3-compatible
// bucket, the natural object-store client for the same aws-sdk-go-v2
// family already used elsewhere for ECS/STS/SFN.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/storage"
)

// Store implements storage.ObjectStore against one S3 bucket.
type Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// Config configures an S3-backed store.
type Config struct {
	Bucket    string
	KeyPrefix string
}

// New builds a Store over an existing aws.Config, mirroring the teacher's
// pattern of constructing per-service clients from a shared loaded config
// (see internal/cloud/awsconfig.Load).
func New(cfg aws.Config, sc Config, logger *zap.Logger) *Store {
	client := s3.NewFromConfig(cfg)
	return &Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    sc.Bucket,
		keyPrefix: sc.KeyPrefix,
		logger:    logger.With(zap.String("component", "storage-s3"), zap.String("bucket", sc.Bucket)),
	}
}

func (s *Store) key(path string) string {
	if s.keyPrefix == "" {
		return path
	}
	return s.keyPrefix + "/" + path
}

// Put uploads data to path.
func (s *Store) Put(ctx context.Context, path string, data io.Reader, contentType string) (int64, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("s3 put failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	return int64(len(buf)), nil
}

// Get retrieves path.
func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var nsk *s3.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, storage.ErrNotExist
		}
		return nil, err
	}
	return out.Body, nil
}

// Exists reports whether path is present.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var notFound *s3.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes path.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	return err
}

// URL returns a presigned GET URL for path valid for ttlSeconds.
func (s *Store) URL(ctx context.Context, path string, ttlSeconds int) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}, s3.WithPresignExpires(time.Duration(ttlSeconds)*time.Second))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
