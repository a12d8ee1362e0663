package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/aqclab/ventana/acq"
)

// ClickHouseConfig locates the shared results database.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ClickHouseSink streams chunks into a shared ClickHouse database over the
// native protocol. Rows from different runs share tables and are told apart
// by the RunID column.
type ClickHouseSink struct {
	conn  clickhouse.Conn
	runID string

	detections []DetectionRow
	followUps  []FollowUpRow
	info       []RunInfoRow
}

// NewClickHouseSink connects, verifies the connection, and creates the
// tables if they are missing.
func NewClickHouseSink(
	cfg ClickHouseConfig,
	runID string,
) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	s := &ClickHouseSink{conn: conn, runID: runID}
	if err := s.createTables(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ClickHouseSink) createTables() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS ` + TableDetections + ` (
			RunID String,
			Chunk Int64,
			Channel Int64,
			TimestampMu Int64,
			AttemptIndex Int64
		)
		ENGINE = MergeTree()
		ORDER BY (RunID, Chunk, Channel, TimestampMu)`,

		`CREATE TABLE IF NOT EXISTS ` + TableFollowUps + ` (
			RunID String,
			Chunk Int64,
			TimestampMu Int64,
			AttemptIndex Int64
		)
		ENGINE = MergeTree()
		ORDER BY (RunID, Chunk, TimestampMu)`,

		`CREATE TABLE IF NOT EXISTS ` + TableRunInfo + ` (
			RunID String,
			Property String,
			Value String
		)
		ENGINE = MergeTree()
		ORDER BY (RunID, Property)`,
	}

	for _, stmt := range ddl {
		if err := s.conn.Exec(context.Background(), stmt); err != nil {
			return fmt.Errorf("clickhouse create table: %w", err)
		}
	}

	return nil
}

// WriteRunInfo records the run-metadata rows.
func (s *ClickHouseSink) WriteRunInfo(rows []RunInfoRow) error {
	s.info = append(s.info, rows...)
	return nil
}

// AppendChunk stages one drained chunk for persistence.
func (s *ClickHouseSink) AppendChunk(chunk int, data acq.ChunkData) error {
	for _, ch := range data.Channels {
		for _, rec := range data.Records[ch] {
			s.detections = append(s.detections, DetectionRow{
				Chunk:        int64(chunk),
				Channel:      int64(ch),
				TimestampMu:  int64(rec.Timestamp),
				AttemptIndex: rec.Attempt,
			})
		}
	}

	for _, rec := range data.FollowUps {
		s.followUps = append(s.followUps, FollowUpRow{
			Chunk:        int64(chunk),
			TimestampMu:  int64(rec.Timestamp),
			AttemptIndex: rec.Attempt,
		})
	}

	return nil
}

// Flush sends all staged rows in one batch per table.
func (s *ClickHouseSink) Flush() error {
	if err := s.sendDetections(); err != nil {
		return err
	}
	if err := s.sendFollowUps(); err != nil {
		return err
	}
	return s.sendInfo()
}

func (s *ClickHouseSink) sendDetections() error {
	if len(s.detections) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+TableDetections)
	if err != nil {
		return fmt.Errorf("clickhouse prepare: %w", err)
	}

	for _, row := range s.detections {
		err = batch.Append(s.runID,
			row.Chunk, row.Channel, row.TimestampMu, row.AttemptIndex)
		if err != nil {
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send: %w", err)
	}

	s.detections = s.detections[:0]
	return nil
}

func (s *ClickHouseSink) sendFollowUps() error {
	if len(s.followUps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+TableFollowUps)
	if err != nil {
		return fmt.Errorf("clickhouse prepare: %w", err)
	}

	for _, row := range s.followUps {
		err = batch.Append(s.runID,
			row.Chunk, row.TimestampMu, row.AttemptIndex)
		if err != nil {
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send: %w", err)
	}

	s.followUps = s.followUps[:0]
	return nil
}

func (s *ClickHouseSink) sendInfo() error {
	if len(s.info) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(context.Background(),
		"INSERT INTO "+TableRunInfo)
	if err != nil {
		return fmt.Errorf("clickhouse prepare: %w", err)
	}

	for _, row := range s.info {
		if err := batch.Append(s.runID, row.Property, row.Value); err != nil {
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send: %w", err)
	}

	s.info = s.info[:0]
	return nil
}

// Close records the end time, flushes, and closes the connection.
func (s *ClickHouseSink) Close() error {
	s.info = append(s.info, RunInfoRow{
		Property: "EndTime",
		Value:    time.Now().Format("2006-01-02 15:04:05"),
	})

	if err := s.Flush(); err != nil {
		return err
	}
	return s.conn.Close()
}
