package intellihire

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordUpsert is called after each upsert.
	RecordUpsert(duration time.Duration, err error)

	// RecordSearch is called after each search. k is the requested result
	// count and results the number returned.
	RecordSearch(k, results int, duration time.Duration, err error)

	// RecordDelete is called after each record delete.
	RecordDelete(duration time.Duration, err error)

	// RecordCommit is called after each commit. written is the number of
	// collections whose snapshot was written and bytes their encoded size.
	RecordCommit(written int, bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each load.
	RecordLoad(collections int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpsert(time.Duration, error)             {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)             {}
func (NoopMetricsCollector) RecordCommit(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	UpsertCount      atomic.Int64
	UpsertErrors     atomic.Int64
	UpsertTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchResults    atomic.Int64
	SearchTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommitWritten    atomic.Int64
	CommitBytes      atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
}

var (
	_ MetricsCollector = NoopMetricsCollector{}
	_ MetricsCollector = (*BasicMetricsCollector)(nil)
)

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(duration time.Duration, err error) {
	b.UpsertCount.Add(1)
	b.UpsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpsertErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchResults.Add(int64(results))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(written int, bytes int64, _ time.Duration, err error) {
	b.CommitCount.Add(1)
	b.CommitWritten.Add(int64(written))
	b.CommitBytes.Add(bytes)
	if err != nil {
		b.CommitErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertCount:    b.UpsertCount.Load(),
		UpsertErrors:   b.UpsertErrors.Load(),
		UpsertAvgNanos: avg(b.UpsertTotalNanos.Load(), b.UpsertCount.Load()),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchResults:  b.SearchResults.Load(),
		SearchAvgNanos: avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		CommitCount:    b.CommitCount.Load(),
		CommitErrors:   b.CommitErrors.Load(),
		CommitWritten:  b.CommitWritten.Load(),
		CommitBytes:    b.CommitBytes.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpsertCount    int64
	UpsertErrors   int64
	UpsertAvgNanos int64
	SearchCount    int64
	SearchErrors   int64
	SearchResults  int64
	SearchAvgNanos int64
	DeleteCount    int64
	DeleteErrors   int64
	CommitCount    int64
	CommitErrors   int64
	CommitWritten  int64
	CommitBytes    int64
	LoadCount      int64
	LoadErrors     int64
}
