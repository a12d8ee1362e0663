package acq

import "github.com/aqclab/ventana/rtio"

// An EventRecord is one detection: the edge timestamp and the attempt it
// was observed in. Attempt indices are zero-based and count every attempt
// of the chunk, detected or not.
type EventRecord struct {
	Timestamp rtio.TimeMu
	Attempt   int64
}

// ChunkData is the drained content of one chunk. It is a snapshot; the
// log it came from can keep filling without affecting it.
type ChunkData struct {
	Channels  []rtio.Channel
	Records   map[rtio.Channel][]EventRecord
	FollowUps []EventRecord
}

// Count returns the number of records held for ch.
func (d ChunkData) Count(ch rtio.Channel) int {
	return len(d.Records[ch])
}

// Total returns the number of records across all channels.
func (d ChunkData) Total() int {
	n := 0
	for _, ch := range d.Channels {
		n += len(d.Records[ch])
	}
	return n
}

// ChunkStats counts what one chunk executed. The sequence returns it to
// the host, which checks it against the drained log.
type ChunkStats struct {
	Detections map[rtio.Channel]int

	FollowUps     int
	Attempts      int
	Detected      int
	Recoveries    int
	CoolingCycles int
	BigCycles     int
}

// NewChunkStats creates zeroed stats for the given channels.
func NewChunkStats(channels ...rtio.Channel) ChunkStats {
	s := ChunkStats{Detections: make(map[rtio.Channel]int)}
	for _, ch := range channels {
		s.Detections[ch] = 0
	}
	return s
}
