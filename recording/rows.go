package recording

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Table names used by every sink backend.
const (
	TableDetections = "detections"
	TableFollowUps  = "follow_ups"
	TableRunInfo    = "run_info"
)

// A DetectionRow is one persisted detection.
type DetectionRow struct {
	Chunk        int64
	Channel      int64
	TimestampMu  int64
	AttemptIndex int64
}

// A FollowUpRow is one persisted follow-up action.
type FollowUpRow struct {
	Chunk        int64
	TimestampMu  int64
	AttemptIndex int64
}

// A RunInfoRow is one run-metadata property.
type RunInfoRow struct {
	Property string
	Value    string
}

// RunInfo collects the metadata rows describing one run: identity, start
// time, the command line, and any extra properties in sorted order.
func RunInfo(runID string, started time.Time, extra map[string]string) []RunInfoRow {
	rows := []RunInfoRow{
		{"RunID", runID},
		{"StartTime", started.Format("2006-01-02 15:04:05")},
		{"Command", strings.Join(os.Args, " ")},
	}

	if ex, err := os.Executable(); err == nil {
		rows = append(rows, RunInfoRow{"Path", filepath.Dir(ex)})
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, RunInfoRow{k, extra[k]})
	}

	return rows
}
