package qcboot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordChunk(t *testing.T) {
	m := NewMetrics(time.Unix(0, 0))

	m.RecordChunk("image", 4096, 1_500_000, true)
	m.RecordChunk("memory", 1024, 200_000, true)
	m.RecordChunk("image", 0, 50_000, false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(4096), snap.ImageBytesSent)
	assert.Equal(t, uint64(1024), snap.MemoryBytesRead)
	assert.Equal(t, uint64(3), snap.ChunksTransferred)
	assert.Equal(t, uint64(1), snap.TransferErrors)
	assert.Greater(t, snap.AverageLatencyNs, uint64(0))
}

func TestMetricsCancellation(t *testing.T) {
	m := NewMetrics(time.Unix(0, 0))
	m.RecordCancellation()
	m.RecordCancellation()
	assert.Equal(t, uint64(2), m.Snapshot().Cancellations)
}

func TestMetricsSnapshotOnNil(t *testing.T) {
	var m *Metrics
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(time.Unix(0, 0))
	m.RecordChunk("image", 1, 50_000, true) // falls in the 100us bucket
	assert.Equal(t, uint64(1), m.LatencyBuckets[0].Load())
}
