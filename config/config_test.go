package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	intellihire "github.com/SRafi007/intellihire-ai"
	"github.com/SRafi007/intellihire-ai/blobstore"
	"github.com/SRafi007/intellihire-ai/blobstore/minio"
	"github.com/SRafi007/intellihire-ai/blobstore/s3"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetAfter removes a variable that godotenv set for the process.
func unsetAfter(t *testing.T, key string) {
	t.Helper()
	t.Cleanup(func() { _ = os.Unsetenv(key) })
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "intellihire", cfg.Collection)
	assert.Equal(t, 768, cfg.Dimension)
	assert.Equal(t, "cosine", cfg.Metric)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
}

func TestLoad(t *testing.T) {
	t.Run("Priority", func(t *testing.T) {
		yamlPath := writeFile(t, "config.yaml", `
collection: cvs
dimension: 512
metric: dot
log:
  level: warn
  format: json
storage:
  backend: local
  data_dir: /var/lib/intellihire
  compression: zstd
`)
		envPath := writeFile(t, ".env", "INTELLIHIRE_LOG_LEVEL=debug\nINTELLIHIRE_LOG_MAX_BACKUPS=2\nINTELLIHIRE_STORAGE_COMMIT_CONCURRENCY=4\n")
		unsetAfter(t, "INTELLIHIRE_LOG_LEVEL")
		unsetAfter(t, "INTELLIHIRE_LOG_MAX_BACKUPS")
		unsetAfter(t, "INTELLIHIRE_STORAGE_COMMIT_CONCURRENCY")
		t.Setenv("INTELLIHIRE_DIMENSION", "384")

		cfg, err := Load(yamlPath, envPath)
		require.NoError(t, err)

		assert.Equal(t, "cvs", cfg.Collection)
		assert.Equal(t, 384, cfg.Dimension, "environment beats file")
		assert.Equal(t, "dot", cfg.Metric)
		assert.Equal(t, "debug", cfg.Log.Level, ".env beats file")
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, 2, cfg.Log.MaxBackups)
		assert.Equal(t, 10, cfg.Log.MaxSizeMB)
		assert.Equal(t, BackendLocal, cfg.Storage.Backend)
		assert.Equal(t, "/var/lib/intellihire", cfg.Storage.DataDir)
		assert.Equal(t, "zstd", cfg.Storage.Compression)
		assert.Equal(t, 4, cfg.Storage.CommitConcurrency)
		assert.Equal(t, "localhost:9000", cfg.Storage.MinIO.Endpoint, "untouched defaults survive")
	})

	t.Run("EnvDoesNotOverrideProcess", func(t *testing.T) {
		envPath := writeFile(t, ".env", "INTELLIHIRE_METRIC=euclidean\n")
		t.Setenv("INTELLIHIRE_METRIC", "dot")

		cfg, err := Load("", envPath)
		require.NoError(t, err)
		assert.Equal(t, "dot", cfg.Metric)
	})

	t.Run("ConfigFromEnvironment", func(t *testing.T) {
		yamlPath := writeFile(t, "settings.yaml", "storage:\n  backend: s3\n  s3:\n    bucket: cvs-bucket\n")
		t.Setenv(EnvConfigFile, yamlPath)

		cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, BackendS3, cfg.Storage.Backend)
		assert.Equal(t, "cvs-bucket", cfg.Storage.S3.Bucket)
	})

	t.Run("MissingFiles", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(filepath.Join(dir, "none.yaml"), filepath.Join(dir, "none.env"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("BadYAML", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "dimension: [not a number"))
		assert.Error(t, err)
	})

	t.Run("BadEnvironment", func(t *testing.T) {
		t.Setenv("INTELLIHIRE_DIMENSION", "many")
		_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Collection = "cvs"
	cfg.Storage.Backend = BackendMinIO
	cfg.Storage.MinIO.Secure = true

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Settings)
		wantErr  string
		warnings int
	}{
		{"BadCollection", func(s *Settings) { s.Collection = "a/b" }, "collection", 1},
		{"BadDimension", func(s *Settings) { s.Dimension = 0 }, "dimension must be positive", 1},
		{"BadMetric", func(s *Settings) { s.Metric = "manhattan" }, "metric", 1},
		{"BadLevel", func(s *Settings) { s.Log.Level = "loud" }, "log.level", 1},
		{"BadFormat", func(s *Settings) { s.Log.Format = "xml" }, "log.format", 1},
		{"BadCompression", func(s *Settings) { s.Storage.Compression = "gzip" }, "storage.compression", 1},
		{"BadLogSize", func(s *Settings) { s.Log.MaxSizeMB = -1 }, "log.max_size_mb", 1},
		{"BadLogBackups", func(s *Settings) { s.Log.MaxBackups = -1 }, "log.max_backups", 1},
		{"BadConcurrency", func(s *Settings) { s.Storage.CommitConcurrency = -1 }, "commit_concurrency", 1},
		{"BadBackend", func(s *Settings) { s.Storage.Backend = "ftp" }, "storage.backend", 0},
		{"LocalWithoutDir", func(s *Settings) {
			s.Storage.Backend = BackendLocal
			s.Storage.DataDir = ""
		}, "data_dir", 0},
		{"MinIOWithoutBucket", func(s *Settings) {
			s.Storage.Backend = BackendMinIO
			s.Storage.MinIO.Bucket = ""
		}, "storage.minio.bucket", 2},
		{"S3WithoutBucket", func(s *Settings) { s.Storage.Backend = BackendS3 }, "storage.s3.bucket", 1},
		{"WarningLevelAlias", func(s *Settings) { s.Log.Level = "WARNING" }, "", 1},
		{"S3WithTable", func(s *Settings) {
			s.Storage.Backend = BackendS3
			s.Storage.S3.Bucket = "b"
			s.Storage.S3.DynamoDBTable = "t"
		}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			warnings, err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.Len(t, warnings, tt.warnings, "%v", warnings)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "store.log")

	logger, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	file, ok := closer.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, cfg.Log.File, file.Filename)
	assert.Equal(t, 10, file.MaxSize)
	assert.Equal(t, 5, file.MaxBackups)

	logger.DebugContext(context.Background(), "hello", "collection", "cvs")
	require.NoError(t, closer.Close())
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"collection":"cvs"`)

	cfg.Log.Level = "loud"
	_, _, err = cfg.NewLogger()
	assert.Error(t, err)

	t.Run("StderrOnly", func(t *testing.T) {
		cfg := Default()
		_, closer, err := cfg.NewLogger()
		require.NoError(t, err)
		assert.IsType(t, nopCloser{}, closer)
		assert.NoError(t, closer.Close())
	})
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		store, err := Default().BlobStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &blobstore.MemoryStore{}, store)
	})

	t.Run("Local", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = BackendLocal
		cfg.Storage.DataDir = t.TempDir()

		store, err := cfg.BlobStore(ctx)
		require.NoError(t, err)
		local, ok := store.(*blobstore.LocalStore)
		require.True(t, ok)
		assert.Equal(t, cfg.Storage.DataDir, local.Root())
		require.NoError(t, local.Close())
	})

	t.Run("MinIO", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = BackendMinIO
		cfg.Storage.MinIO.AccessKey = "minioadmin"
		cfg.Storage.MinIO.SecretKey = "minioadmin"

		store, err := cfg.BlobStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &minio.Store{}, store)
	})

	t.Run("S3", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "test")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
		t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
		t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

		cfg := Default()
		cfg.Storage.Backend = BackendS3
		cfg.Storage.S3.Bucket = "cvs"
		cfg.Storage.S3.Region = "eu-central-1"
		cfg.Storage.S3.Endpoint = "http://localhost:4566"

		store, err := cfg.BlobStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &s3.Store{}, store)

		cfg.Storage.S3.DynamoDBTable = "intellihire-commits"
		store, err = cfg.BlobStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &s3.DDBCommitStore{}, store)
	})

	t.Run("Unknown", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = "ftp"
		_, err := cfg.BlobStore(ctx)
		assert.Error(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Collection = "cvs"
	cfg.Dimension = 2
	cfg.Log.Level = "error"
	cfg.Storage.Backend = BackendLocal
	cfg.Storage.DataDir = t.TempDir()

	store, closeFn, err := cfg.OpenStore(ctx)
	require.NoError(t, err)

	require.Equal(t, []intellihire.CollectionInfo{{Name: "cvs", Dimension: 2, Metric: intellihire.MetricCosine}}, store.Collections())
	require.NoError(t, store.UpsertRecord(ctx, "cvs", "A", []float32{1, 0}, map[string]any{
		"cv_id":            "A",
		"name":             "Ada",
		"email":            "ada@example.com",
		"years_experience": 5,
		"skills":           []string{"go"},
	}))
	require.NoError(t, store.Commit(ctx))
	require.NoError(t, closeFn())

	reopened, closeFn, err := cfg.OpenStore(ctx)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	_, ok, err := reopened.GetRecord(ctx, "cvs", "A")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("InvalidSettings", func(t *testing.T) {
		other := *cfg
		other.Storage.DataDir = t.TempDir()
		other.Dimension = 0
		_, _, err := other.OpenStore(ctx)
		assert.Error(t, err)
	})
}
