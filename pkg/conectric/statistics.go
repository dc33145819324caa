// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Statistics tracks record and frame counters across one gateway session.
// The live instance is updated atomically; Snapshot returns a plain copy
// safe to read field by field and to format with String or MessageRate.
type Statistics struct {
	StartTime time.Time

	TotalRecords    uint64 // every record handed to ProcessRecord
	Frames          uint64 // '>'-prefixed records seen after bring-up
	Delivered       uint64 // messages handed to the caller
	Duplicates      uint64 // frames dropped by the dedup cache
	Suppressed      uint64 // status/boot messages vetoed by configuration
	PrematureFrames uint64 // frames received before the identity was known
	HeaderRejects   uint64 // extended header or unsupported payload type
	UnknownTypes    uint64 // type codes absent from the registry
	IgnoredTypes    uint64 // type codes in the ignorable set
	DecodeErrors    uint64 // truncated or malformed payloads
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

func (s *Statistics) add(counter *uint64) {
	atomic.AddUint64(counter, 1)
}

// Snapshot returns a consistent copy for display.
func (s *Statistics) Snapshot() Statistics {
	return Statistics{
		StartTime:       s.StartTime,
		TotalRecords:    atomic.LoadUint64(&s.TotalRecords),
		Frames:          atomic.LoadUint64(&s.Frames),
		Delivered:       atomic.LoadUint64(&s.Delivered),
		Duplicates:      atomic.LoadUint64(&s.Duplicates),
		Suppressed:      atomic.LoadUint64(&s.Suppressed),
		PrematureFrames: atomic.LoadUint64(&s.PrematureFrames),
		HeaderRejects:   atomic.LoadUint64(&s.HeaderRejects),
		UnknownTypes:    atomic.LoadUint64(&s.UnknownTypes),
		IgnoredTypes:    atomic.LoadUint64(&s.IgnoredTypes),
		DecodeErrors:    atomic.LoadUint64(&s.DecodeErrors),
	}
}

// MessageRate is delivered messages per second since the session started.
// Call it on a Snapshot copy.
func (snap Statistics) MessageRate() float64 {
	elapsed := time.Since(snap.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(snap.Delivered) / elapsed
}

// String returns a formatted summary. Call it on a Snapshot copy.
func (snap Statistics) String() string {
	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Records:         %8d\n", snap.TotalRecords)
	result += fmt.Sprintf("Frames:          %8d\n", snap.Frames)
	result += fmt.Sprintf("Delivered:       %8d\n", snap.Delivered)
	if snap.Duplicates > 0 {
		result += fmt.Sprintf("Duplicates:      %8d\n", snap.Duplicates)
	}
	if snap.Suppressed > 0 {
		result += fmt.Sprintf("Suppressed:      %8d\n", snap.Suppressed)
	}
	if snap.PrematureFrames > 0 {
		result += fmt.Sprintf("Premature:       %8d\n", snap.PrematureFrames)
	}
	if snap.HeaderRejects > 0 {
		result += fmt.Sprintf("Header rejects:  %8d\n", snap.HeaderRejects)
	}
	if snap.UnknownTypes > 0 {
		result += fmt.Sprintf("Unknown types:   %8d\n", snap.UnknownTypes)
	}
	if snap.IgnoredTypes > 0 {
		result += fmt.Sprintf("Ignored types:   %8d\n", snap.IgnoredTypes)
	}
	if snap.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode errors:   %8d\n", snap.DecodeErrors)
	}
	result += "================================\n"
	return result
}
