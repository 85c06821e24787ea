package flatgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordAdd is called after each AddVector call with the number of
	// vectors attempted.
	RecordAdd(n int, duration time.Duration, err error)

	// RecordSearch is called after each Search and QueryRange call.
	RecordSearch(queries, k int, duration time.Duration, err error)

	// RecordPartial is called after each partial search on a backend.
	RecordPartial(backend string, rows int, duration time.Duration, err error)

	// RecordSave is called after each snapshot save.
	RecordSave(bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each snapshot load.
	RecordLoad(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordPartial(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error)          {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddVectors       atomic.Int64
	AddErrors        atomic.Int64
	SearchCount      atomic.Int64
	SearchQueries    atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	PartialCount     atomic.Int64
	PartialErrors    atomic.Int64
	SaveCount        atomic.Int64
	SaveBytes        atomic.Int64
	SaveErrors       atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(n int, duration time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddVectors.Add(int64(n))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordPartial implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartial(backend string, rows int, duration time.Duration, err error) {
	b.PartialCount.Add(1)
	if err != nil {
		b.PartialErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int64, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(bytes)
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(count int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddVectors:     b.AddVectors.Load(),
		AddErrors:      b.AddErrors.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.avgSearchNanos(),
		PartialCount:   b.PartialCount.Load(),
		PartialErrors:  b.PartialErrors.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveBytes:      b.SaveBytes.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddVectors     int64
	AddErrors      int64
	SearchCount    int64
	SearchQueries  int64
	SearchErrors   int64
	SearchAvgNanos int64
	PartialCount   int64
	PartialErrors  int64
	SaveCount      int64
	SaveBytes      int64
	SaveErrors     int64
	LoadCount      int64
	LoadErrors     int64
}
