package config

import "fmt"

// StorageConfig selects and configures the document/artifact blob store.
type StorageConfig struct {
	// Backend selects the object store implementation: "s3" or "fs".
	Backend string `mapstructure:"backend" env:"STORAGE_BACKEND" default:"fs"`

	// S3Bucket and S3KeyPrefix configure the "s3" backend.
	S3Bucket    string `mapstructure:"s3_bucket" env:"STORAGE_S3_BUCKET"`
	S3KeyPrefix string `mapstructure:"s3_key_prefix" env:"STORAGE_S3_KEY_PREFIX"`
	S3Region    string `mapstructure:"s3_region" env:"STORAGE_S3_REGION"`

	// FSRoot configures the "fs" backend's root directory.
	FSRoot string `mapstructure:"fs_root" env:"STORAGE_FS_ROOT" default:"./data/documents"`
}

// Validate validates storage configuration.
func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "s3":
		if s.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required when storage.backend is s3")
		}
	case "fs", "":
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: s3, fs)", s.Backend)
	}
	return nil
}
