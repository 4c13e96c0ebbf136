package config

import (
	"errors"
	"fmt"
	"strings"

	intellihire "github.com/SRafi007/intellihire-ai"
	"github.com/SRafi007/intellihire-ai/internal/registry"
)

// Validate checks the settings. Problems that make the settings unusable are
// joined into err; questionable but workable choices are returned as
// warnings.
func (s *Settings) Validate() (warnings []string, err error) {
	var errs []error

	if nameErr := registry.ValidateName(s.Collection); nameErr != nil {
		errs = append(errs, fmt.Errorf("collection: %w", nameErr))
	}
	if s.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("dimension must be positive, got %d", s.Dimension))
	}
	if _, mErr := intellihire.ParseMetric(s.Metric); mErr != nil {
		errs = append(errs, fmt.Errorf("metric: %w", mErr))
	}

	if _, lErr := intellihire.ParseLevel(s.Log.Level); lErr != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", lErr))
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", s.Log.Format))
	}

	if s.Log.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb must not be negative, got %d", s.Log.MaxSizeMB))
	}
	if s.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("log.max_backups must not be negative, got %d", s.Log.MaxBackups))
	}

	st := s.Storage
	if _, cErr := intellihire.ParseCompression(st.Compression); cErr != nil {
		errs = append(errs, fmt.Errorf("storage.compression: %w", cErr))
	}
	if st.CommitConcurrency < 0 {
		errs = append(errs, fmt.Errorf("storage.commit_concurrency must not be negative, got %d", st.CommitConcurrency))
	}
	if st.IOLimit < 0 {
		errs = append(errs, fmt.Errorf("storage.io_limit_bytes_per_sec must not be negative, got %d", st.IOLimit))
	}

	switch strings.ToLower(st.Backend) {
	case BackendMemory:
		warnings = append(warnings, "storage.backend is memory: commits do not outlive the process")
	case BackendLocal:
		if st.DataDir == "" {
			errs = append(errs, errors.New("storage.data_dir is required for the local backend"))
		}
	case BackendMinIO:
		if st.MinIO.Endpoint == "" {
			errs = append(errs, errors.New("storage.minio.endpoint is required"))
		}
		if st.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage.minio.bucket is required"))
		}
		if st.MinIO.AccessKey == "" || st.MinIO.SecretKey == "" {
			warnings = append(warnings, "storage.minio credentials are empty: requests are anonymous")
		}
		if !st.MinIO.Secure {
			warnings = append(warnings, "storage.minio.secure is false: traffic is not encrypted")
		}
	case BackendS3:
		if st.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
		if st.S3.DynamoDBTable == "" {
			warnings = append(warnings, "storage.s3.dynamodb_table is empty: concurrent writers may overwrite each other's commits")
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory, local, minio, s3; got %q", st.Backend))
	}

	return warnings, errors.Join(errs...)
}
