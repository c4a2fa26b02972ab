package qcboot

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering a single chunk round-trip from ~100us (small memory reads)
// to 10s (a stalled device on a bulk image chunk).
var LatencyBuckets = []uint64{
	100_000,       // 100us
	1_000_000,     // 1ms
	10_000_000,    // 10ms
	100_000_000,   // 100ms
	1_000_000_000, // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 6

// Metrics tracks transfer-worker statistics for a single protocol
// session. Safe for concurrent use; only one worker writes at a time
// per spec.md 5, but Snapshot may be read from the foreground
// concurrently.
type Metrics struct {
	ImageBytesSent    atomic.Uint64
	MemoryBytesRead   atomic.Uint64
	ChunksTransferred atomic.Uint64
	TransferErrors    atomic.Uint64
	Cancellations     atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a Metrics instance with StartTime set to now.
func NewMetrics(now time.Time) *Metrics {
	m := &Metrics{}
	m.StartTime.Store(now.UnixNano())
	return m
}

// RecordChunk records one chunk transfer of the given size and
// latency, attributing bytes to either the image-transfer or
// memory-read counters.
func (m *Metrics) RecordChunk(kind string, bytes uint64, latencyNs uint64, success bool) {
	m.ChunksTransferred.Add(1)
	if !success {
		m.TransferErrors.Add(1)
	} else {
		switch kind {
		case "image":
			m.ImageBytesSent.Add(bytes)
		case "memory":
			m.MemoryBytesRead.Add(bytes)
		}
	}
	m.recordLatency(latencyNs)
}

// RecordCancellation increments the cancellation counter.
func (m *Metrics) RecordCancellation() {
	m.Cancellations.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
			return
		}
	}
}

// Stop records StopTime as now.
func (m *Metrics) Stop(now time.Time) {
	m.StopTime.Store(now.UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to log or
// serialize.
type MetricsSnapshot struct {
	ImageBytesSent    uint64
	MemoryBytesRead   uint64
	ChunksTransferred uint64
	TransferErrors    uint64
	Cancellations     uint64
	AverageLatencyNs  uint64
}

// Snapshot returns a consistent-enough point-in-time view of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	opCount := m.OpCount.Load()
	var avg uint64
	if opCount > 0 {
		avg = m.TotalLatencyNs.Load() / opCount
	}
	return MetricsSnapshot{
		ImageBytesSent:    m.ImageBytesSent.Load(),
		MemoryBytesRead:   m.MemoryBytesRead.Load(),
		ChunksTransferred: m.ChunksTransferred.Load(),
		TransferErrors:    m.TransferErrors.Load(),
		Cancellations:     m.Cancellations.Load(),
		AverageLatencyNs:  avg,
	}
}
