package experiment

import (
	"fmt"

	"github.com/aqclab/ventana/acq"
)

// A PersistenceError reports a chunk that could not be persisted after the
// retry budget. The drained data rides along so callers can still salvage
// it.
type PersistenceError struct {
	Chunk int
	Data  acq.ChunkData
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting chunk %d: %v", e.Chunk, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
