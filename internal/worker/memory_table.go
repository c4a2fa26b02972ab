package worker

import (
	"path/filepath"

	"github.com/google/uuid"

	wiresahara "github.com/openpst/go-qcboot/internal/wire/sahara"
)

// QueueMemoryTableDump enqueues one MemoryReadRequest per nonzero-size
// entry in a parsed Sahara memory table, writing each to
// <outDir>/<name>_<filename>.bin. Zero-size entries are skipped from
// the dump queue, though they remain present in the raw table bytes a
// caller may have saved separately (spec.md 4.3 edge case). Ported
// from the original sahara_window.cpp's per-entry dump loop, which
// walks the parsed table the same way after a MEMORY_DEBUG table read.
func QueueMemoryTableDump(q *ReadQueue, entries []wiresahara.MemoryTableEntry, outDir string, stepSize uint32) []MemoryReadRequest {
	var queued []MemoryReadRequest
	for _, e := range entries {
		if e.Length == 0 {
			continue
		}
		req := MemoryReadRequest{
			ID:          uuid.New(),
			Address:     e.Address,
			Size:        e.Length,
			StepSize:    stepSize,
			OutFilePath: filepath.Join(outDir, e.NameString()+"_"+e.FilenameString()+".bin"),
		}
		q.Enqueue(req)
		queued = append(queued, req)
	}
	return queued
}
