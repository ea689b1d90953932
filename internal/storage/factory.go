package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/storage/fs"
	"github.com/jaxxstorm/docuflow/internal/storage/s3"
)

// Config selects and configures a storage backend, the storage-layer
// analog of config.DatabaseConfig's provider switch.
type Config struct {
	Backend string // "s3" or "fs"

	S3Bucket    string
	S3KeyPrefix string

	FSRoot string
}

// NewStore builds the ObjectStore named by cfg.Backend. awsCfg is only
// consulted for the "s3" backend; pass a zero value when running fs-only.
func NewStore(ctx context.Context, cfg Config, awsCfg aws.Config, logger *zap.Logger) (ObjectStore, error) {
	logger = logger.With(zap.String("component", "storage-factory"))

	switch cfg.Backend {
	case "s3":
		logger.Info("initializing S3 object store", zap.String("bucket", cfg.S3Bucket))
		return s3.New(awsCfg, s3.Config{Bucket: cfg.S3Bucket, KeyPrefix: cfg.S3KeyPrefix}, logger), nil
	case "fs", "":
		logger.Info("initializing filesystem object store", zap.String("root", cfg.FSRoot))
		return fs.New(cfg.FSRoot, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: s3, fs)", cfg.Backend)
	}
}
