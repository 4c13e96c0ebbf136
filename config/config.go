// Package config loads process settings for an intellihire store from
// defaults, an optional YAML file, a .env file and the environment.
//
// Priority: environment > .env > YAML file > defaults. Environment variables
// use the INTELLIHIRE prefix, for example INTELLIHIRE_DIMENSION,
// INTELLIHIRE_LOG_LEVEL or INTELLIHIRE_STORAGE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	intellihire "github.com/SRafi007/intellihire-ai"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "INTELLIHIRE"

	// EnvConfigFile names the YAML file used when Load is given no path.
	EnvConfigFile = "INTELLIHIRE_CONFIG"

	// DefaultEnvFile is the dotenv file read when Load is given none.
	DefaultEnvFile = ".env"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendMinIO  = "minio"
	BackendS3     = "s3"
)

// Settings is the root configuration.
type Settings struct {
	Collection     string          `yaml:"collection" envconfig:"COLLECTION"`
	Dimension      int             `yaml:"dimension" envconfig:"DIMENSION"`
	Metric         string          `yaml:"metric" envconfig:"METRIC"`
	StrictIdentity bool            `yaml:"strict_identity" envconfig:"STRICT_IDENTITY"`
	Log            LogSettings     `yaml:"log" envconfig:"LOG"`
	Storage        StorageSettings `yaml:"storage" envconfig:"STORAGE"`
}

// LogSettings configures the store logger.
type LogSettings struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"` // text or json
	File   string `yaml:"file" envconfig:"FILE"`     // optional, rotated
	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
}

// StorageSettings selects where commits go.
type StorageSettings struct {
	Backend           string        `yaml:"backend" envconfig:"BACKEND"`
	DataDir           string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	Compression       string        `yaml:"compression" envconfig:"COMPRESSION"`
	KeepSnapshots     bool          `yaml:"keep_snapshots" envconfig:"KEEP_SNAPSHOTS"`
	CommitConcurrency int           `yaml:"commit_concurrency" envconfig:"COMMIT_CONCURRENCY"`
	IOLimit           int64         `yaml:"io_limit_bytes_per_sec" envconfig:"IO_LIMIT"`
	MinIO             MinIOSettings `yaml:"minio" envconfig:"MINIO"`
	S3                S3Settings    `yaml:"s3" envconfig:"S3"`
}

// MinIOSettings configures the MinIO backend.
type MinIOSettings struct {
	Endpoint     string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKey    string `yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey    string `yaml:"secret_key" envconfig:"SECRET_KEY"`
	Bucket       string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix       string `yaml:"prefix" envconfig:"PREFIX"`
	Region       string `yaml:"region" envconfig:"REGION"`
	Secure       bool   `yaml:"secure" envconfig:"SECURE"`
	CreateBucket bool   `yaml:"create_bucket" envconfig:"CREATE_BUCKET"`
}

// S3Settings configures the S3 backend. Credentials come from the default
// AWS chain.
type S3Settings struct {
	Bucket   string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix   string `yaml:"prefix" envconfig:"PREFIX"`
	Region   string `yaml:"region" envconfig:"REGION"`
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"` // S3-compatible services, path style
	// DynamoDBTable, when set, keeps commit pointers in DynamoDB so several
	// writers can share one bucket.
	DynamoDBTable string `yaml:"dynamodb_table" envconfig:"DYNAMODB_TABLE"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Collection: intellihire.DefaultCollection,
		Dimension:  intellihire.DefaultDimension,
		Metric:     "cosine",
		Log: LogSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Storage: StorageSettings{
			Backend:           BackendMemory,
			DataDir:           "data",
			Compression:       "lz4",
			CommitConcurrency: 1,
			MinIO: MinIOSettings{
				Endpoint: "localhost:9000",
				Bucket:   "intellihire",
			},
		},
	}
}

// Load reads settings. path names an optional YAML file; when empty the
// INTELLIHIRE_CONFIG variable is consulted. envFiles are dotenv files loaded
// into the process environment without overriding it; when none are given
// ./.env is tried. Missing files are not errors.
func Load(path string, envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Save writes the settings as YAML.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
