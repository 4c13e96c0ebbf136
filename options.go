package intellihire

import (
	"log/slog"
	"time"

	"github.com/SRafi007/intellihire-ai/blobstore"
	"github.com/SRafi007/intellihire-ai/internal/resource"
	"github.com/SRafi007/intellihire-ai/internal/search"
	"github.com/SRafi007/intellihire-ai/internal/snapshot"
)

// Compression selects how committed snapshots are compressed.
type Compression = snapshot.Compression

const (
	CompressionNone = snapshot.CompressionNone
	CompressionLZ4  = snapshot.CompressionLZ4
	CompressionZSTD = snapshot.CompressionZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return snapshot.ParseCompression(s)
}

type options struct {
	metricsCollector  MetricsCollector
	logger            *Logger
	blobStore         blobstore.BlobStore
	compression       Compression
	keepSnapshots     bool
	strictIdentity    bool
	parallelThreshold int
	resources         resource.Config
	now               func() time.Time
}

// Option configures Store construction.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &intellihire.BasicMetricsCollector{}
//	store := intellihire.New(intellihire.WithMetricsCollector(metrics))
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Upserts: %d, Avg latency: %dns\n", stats.UpsertCount, stats.UpsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore enables Commit and Load against store.
//
//	local, _ := blobstore.NewLocalStore("./data")
//	store, err := intellihire.Open(ctx, intellihire.WithBlobStore(local))
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCompression sets the compression of committed snapshots.
// The default is LZ4.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithKeepSnapshots keeps superseded snapshots in the blob store instead of
// deleting them after each commit.
func WithKeepSnapshots() Option {
	return func(o *options) {
		o.keepSnapshots = true
	}
}

// WithStrictIdentity rejects upserts whose payload cv_id differs from the
// record id.
func WithStrictIdentity() Option {
	return func(o *options) {
		o.strictIdentity = true
	}
}

// WithParallelThreshold sets the candidate count above which a search scores
// in parallel partitions. Values <= 0 disable parallel scoring.
func WithParallelThreshold(n int) Option {
	return func(o *options) {
		o.parallelThreshold = n
	}
}

// WithCommitConcurrency sets how many collections are committed or loaded at
// once. The default is 1.
func WithCommitConcurrency(n int) Option {
	return func(o *options) {
		o.resources.MaxConcurrentCommits = int64(n)
	}
}

// WithCommitRateLimit caps the blob store write throughput of commits in
// bytes per second. Zero means unlimited.
func WithCommitRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithCommitBufferLimit caps the encoded snapshot bytes held in memory by
// concurrent commits and loads. Zero means unlimited.
func WithCommitBufferLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MaxBufferedBytes = bytes
	}
}

// WithClock sets the clock used for updated_at and the last_updated default.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		compression:       CompressionLZ4,
		parallelThreshold: search.DefaultParallelThreshold,
		now:               time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
