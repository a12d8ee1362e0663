package recording

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/aqclab/ventana/acq"
)

type csvRow struct {
	chunk     int
	stream    string
	channel   int64
	timestamp int64
	attempt   int64
}

// CSVSink writes chunks into a flat CSV file. Detections and follow-ups
// share the file, told apart by the Stream column. Run metadata goes in as
// leading comment lines.
type CSVSink struct {
	filename      string
	file          *os.File
	rows          []csvRow
	bufferSize    int
	headerWritten bool
}

// NewCSVSink creates the CSV file. An empty path gets a generated name. The
// file must not already exist.
func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		path = "ventana_run_" + xid.New().String()
	}

	filename := path + ".csv"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	s := &CSVSink{
		filename:   filename,
		file:       file,
		bufferSize: 1000,
	}

	atexit.Register(func() { _ = s.Flush() })

	return s, nil
}

// Filename returns the name of the CSV file being written.
func (s *CSVSink) Filename() string {
	return s.filename
}

// WriteRunInfo records the run-metadata rows as comment lines.
func (s *CSVSink) WriteRunInfo(rows []RunInfoRow) error {
	for _, row := range rows {
		_, err := fmt.Fprintf(s.file, "# %s: %s\n", row.Property, row.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendChunk stages one drained chunk for persistence.
func (s *CSVSink) AppendChunk(chunk int, data acq.ChunkData) error {
	for _, ch := range data.Channels {
		for _, rec := range data.Records[ch] {
			s.rows = append(s.rows, csvRow{
				chunk:     chunk,
				stream:    "detection",
				channel:   int64(ch),
				timestamp: int64(rec.Timestamp),
				attempt:   rec.Attempt,
			})
		}
	}

	for _, rec := range data.FollowUps {
		s.rows = append(s.rows, csvRow{
			chunk:     chunk,
			stream:    "followup",
			channel:   -1,
			timestamp: int64(rec.Timestamp),
			attempt:   rec.Attempt,
		})
	}

	if len(s.rows) >= s.bufferSize {
		return s.writeOut()
	}
	return nil
}

func (s *CSVSink) writeOut() error {
	if !s.headerWritten {
		_, err := fmt.Fprintf(s.file,
			"Chunk, Stream, Channel, TimestampMu, AttemptIndex\n")
		if err != nil {
			return err
		}
		s.headerWritten = true
	}

	for _, row := range s.rows {
		_, err := fmt.Fprintf(s.file, "%d, %s, %d, %d, %d\n",
			row.chunk, row.stream, row.channel, row.timestamp, row.attempt)
		if err != nil {
			return err
		}
	}

	s.rows = s.rows[:0]
	return nil
}

// Flush writes staged rows out and syncs the file to disk.
func (s *CSVSink) Flush() error {
	if err := s.writeOut(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes staged rows and closes the file.
func (s *CSVSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
