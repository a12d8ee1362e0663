package recording

import (
	"time"

	"github.com/aqclab/ventana/acq"
)

// SQLiteSink persists chunks into a local results database file.
type SQLiteSink struct {
	rec      Recorder
	filename string
}

// NewSQLiteSink creates the results database and its tables. An empty path
// gets a generated name.
func NewSQLiteSink(path string) (s *SQLiteSink, err error) {
	defer recoverTo(&err)

	rec := NewRecorder(path)
	rec.CreateTable(TableDetections, DetectionRow{})
	rec.CreateTable(TableFollowUps, FollowUpRow{})
	rec.CreateTable(TableRunInfo, RunInfoRow{})

	return &SQLiteSink{rec: rec, filename: rec.Filename()}, nil
}

// Filename returns the name of the database file being written.
func (s *SQLiteSink) Filename() string {
	return s.filename
}

// WriteRunInfo records the run-metadata rows.
func (s *SQLiteSink) WriteRunInfo(rows []RunInfoRow) (err error) {
	defer recoverTo(&err)

	for _, row := range rows {
		s.rec.InsertData(TableRunInfo, row)
	}
	return nil
}

// AppendChunk stages one drained chunk for persistence.
func (s *SQLiteSink) AppendChunk(chunk int, data acq.ChunkData) (err error) {
	defer recoverTo(&err)

	for _, ch := range data.Channels {
		for _, rec := range data.Records[ch] {
			s.rec.InsertData(TableDetections, DetectionRow{
				Chunk:        int64(chunk),
				Channel:      int64(ch),
				TimestampMu:  int64(rec.Timestamp),
				AttemptIndex: rec.Attempt,
			})
		}
	}

	for _, rec := range data.FollowUps {
		s.rec.InsertData(TableFollowUps, FollowUpRow{
			Chunk:        int64(chunk),
			TimestampMu:  int64(rec.Timestamp),
			AttemptIndex: rec.Attempt,
		})
	}

	return nil
}

// Flush makes all staged chunks durable.
func (s *SQLiteSink) Flush() (err error) {
	defer recoverTo(&err)

	s.rec.Flush()
	return nil
}

// Close records the end time, flushes, and closes the database.
func (s *SQLiteSink) Close() (err error) {
	defer recoverTo(&err)

	s.rec.InsertData(TableRunInfo, RunInfoRow{
		Property: "EndTime",
		Value:    time.Now().Format("2006-01-02 15:04:05"),
	})

	return s.rec.Close()
}
