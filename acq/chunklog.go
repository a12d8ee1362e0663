package acq

import (
	"fmt"
	"log"

	"github.com/aqclab/ventana/rtio"
)

// A CapacityError reports a write beyond a chunk log's capacity. It is a
// sizing fault, not a data fault: everything recorded up to capacity
// remains valid and drainable.
type CapacityError struct {
	Ch       rtio.Channel
	FollowUp bool
	Capacity int
}

func (e *CapacityError) Error() string {
	if e.FollowUp {
		return fmt.Sprintf(
			"chunk log capacity %d exceeded by a follow-up record", e.Capacity)
	}
	return fmt.Sprintf(
		"chunk log capacity %d exceeded on channel %d", e.Capacity, e.Ch)
}

// A ChunkLog buffers the detections of one chunk in fixed-capacity
// per-channel storage. It is allocated once per chunk, filled by the
// sequence, drained by the host, and then discarded. A log is owned by
// one goroutine at a time.
type ChunkLog struct {
	capacity  int
	channels  []rtio.Channel
	records   map[rtio.Channel][]EventRecord
	followUps []EventRecord
}

// NewChunkLog allocates a log for the given channels, holding at most
// capacity records per channel and capacity follow-up entries. Storage is
// reserved up front; recording never allocates.
func NewChunkLog(capacity int, channels ...rtio.Channel) *ChunkLog {
	if capacity <= 0 {
		log.Panic("chunk log capacity must be positive")
	}
	if len(channels) == 0 {
		log.Panic("chunk log needs at least one channel")
	}

	l := &ChunkLog{
		capacity:  capacity,
		channels:  append([]rtio.Channel(nil), channels...),
		records:   make(map[rtio.Channel][]EventRecord, len(channels)),
		followUps: make([]EventRecord, 0, capacity),
	}
	for _, ch := range channels {
		if _, dup := l.records[ch]; dup {
			log.Panic("duplicate channel in chunk log")
		}
		l.records[ch] = make([]EventRecord, 0, capacity)
	}
	return l
}

// Capacity returns the per-channel record limit.
func (l *ChunkLog) Capacity() int {
	return l.capacity
}

// Channels returns the channels the log was allocated for, in order.
func (l *ChunkLog) Channels() []rtio.Channel {
	return append([]rtio.Channel(nil), l.channels...)
}

// Record appends one detection for ch. Writing past the capacity panics
// with a CapacityError and leaves the stored records intact.
func (l *ChunkLog) Record(ch rtio.Channel, r EventRecord) {
	stored, known := l.records[ch]
	if !known {
		log.Panic("record on a channel the chunk log was not allocated for")
	}
	if len(stored) == l.capacity {
		panic(&CapacityError{Ch: ch, Capacity: l.capacity})
	}
	l.records[ch] = append(stored, r)
}

// RecordFollowUp appends one follow-up entry. Writing past the capacity
// panics with a CapacityError and leaves the stored entries intact.
func (l *ChunkLog) RecordFollowUp(r EventRecord) {
	if len(l.followUps) == l.capacity {
		panic(&CapacityError{FollowUp: true, Capacity: l.capacity})
	}
	l.followUps = append(l.followUps, r)
}

// Count returns the number of records held for ch.
func (l *ChunkLog) Count(ch rtio.Channel) int {
	return len(l.records[ch])
}

// FollowUpCount returns the number of follow-up entries held.
func (l *ChunkLog) FollowUpCount() int {
	return len(l.followUps)
}

// Drain snapshots everything recorded so far. Draining does not consume:
// a second drain returns the same data, and later records do not appear
// in snapshots already taken.
func (l *ChunkLog) Drain() ChunkData {
	data := ChunkData{
		Channels:  l.Channels(),
		Records:   make(map[rtio.Channel][]EventRecord, len(l.channels)),
		FollowUps: append([]EventRecord(nil), l.followUps...),
	}
	for _, ch := range l.channels {
		data.Records[ch] = append([]EventRecord(nil), l.records[ch]...)
	}
	return data
}
