package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/natefinch/lumberjack.v2"

	intellihire "github.com/SRafi007/intellihire-ai"
	"github.com/SRafi007/intellihire-ai/blobstore"
	"github.com/SRafi007/intellihire-ai/blobstore/minio"
	"github.com/SRafi007/intellihire-ai/blobstore/s3"
)

// NewLogger builds the logger described by s.Log. Output goes to stderr and,
// when a file is configured, also to that file, which is rotated once it
// reaches MaxSizeMB. The returned closer closes the file.
func (s *Settings) NewLogger() (*intellihire.Logger, io.Closer, error) {
	level, err := intellihire.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if s.Log.File != "" {
		file := &lumberjack.Logger{
			Filename:   s.Log.File,
			MaxSize:    s.Log.MaxSizeMB,
			MaxBackups: s.Log.MaxBackups,
		}
		w, closer = io.MultiWriter(os.Stderr, file), file
	}

	if strings.EqualFold(s.Log.Format, "json") {
		return intellihire.NewJSONLoggerTo(w, level), closer, nil
	}
	return intellihire.NewTextLoggerTo(w, level), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// BlobStore opens the configured storage backend.
func (s *Settings) BlobStore(ctx context.Context) (blobstore.BlobStore, error) {
	st := s.Storage
	switch strings.ToLower(st.Backend) {
	case BackendMemory, "":
		return blobstore.NewMemoryStore(), nil

	case BackendLocal:
		return blobstore.NewLocalStore(st.DataDir)

	case BackendMinIO:
		client, err := miniogo.New(st.MinIO.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(st.MinIO.AccessKey, st.MinIO.SecretKey, ""),
			Secure: st.MinIO.Secure,
			Region: st.MinIO.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		store := minio.NewStore(client, st.MinIO.Bucket, st.MinIO.Prefix)
		if st.MinIO.CreateBucket {
			if err := store.EnsureBucket(ctx, st.MinIO.Region); err != nil {
				return nil, fmt.Errorf("minio bucket %q: %w", st.MinIO.Bucket, err)
			}
		}
		return store, nil

	case BackendS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if st.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(st.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if st.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(st.S3.Endpoint)
				o.UsePathStyle = true
			}
		})
		store := s3.NewStore(client, st.S3.Bucket, st.S3.Prefix)
		if st.S3.DynamoDBTable == "" {
			return store, nil
		}
		baseURI := "s3://" + st.S3.Bucket + "/" + strings.Trim(st.S3.Prefix, "/")
		return s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), st.S3.DynamoDBTable, baseURI), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}

// StoreOptions translates the settings into store options. logger may be nil
// for the no-op logger.
func (s *Settings) StoreOptions(ctx context.Context, logger *intellihire.Logger) ([]intellihire.Option, error) {
	compression, err := intellihire.ParseCompression(s.Storage.Compression)
	if err != nil {
		return nil, err
	}
	blobs, err := s.BlobStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []intellihire.Option{
		intellihire.WithLogger(logger),
		intellihire.WithBlobStore(blobs),
		intellihire.WithCompression(compression),
		intellihire.WithCommitConcurrency(s.Storage.CommitConcurrency),
		intellihire.WithCommitRateLimit(s.Storage.IOLimit),
	}
	if s.Storage.KeepSnapshots {
		opts = append(opts, intellihire.WithKeepSnapshots())
	}
	if s.StrictIdentity {
		opts = append(opts, intellihire.WithStrictIdentity())
	}
	return opts, nil
}

// OpenStore validates the settings, opens the store with its committed
// collections and initializes the configured collection. Warnings are
// logged. The returned function closes the store and the log file.
func (s *Settings) OpenStore(ctx context.Context) (*intellihire.Store, func() error, error) {
	warnings, err := s.Validate()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid settings: %w", err)
	}
	metric, err := intellihire.ParseMetric(s.Metric)
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := s.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		logger.WarnContext(ctx, "config", "warning", w)
	}

	opts, err := s.StoreOptions(ctx, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, err
	}
	store, err := intellihire.Open(ctx, opts...)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, err
	}
	if err := store.InitCollection(ctx, s.Collection, s.Dimension, metric); err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		return errors.Join(store.Close(), logCloser.Close())
	}
	return store, closeFn, nil
}
