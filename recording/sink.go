package recording

import (
	"fmt"

	"github.com/aqclab/ventana/acq"
)

// A Sink persists drained chunks. AppendChunk is called once per chunk in
// chunk order. After Flush returns nil, every chunk appended so far must
// survive a process crash.
type Sink interface {
	// WriteRunInfo records the run-metadata rows.
	WriteRunInfo(rows []RunInfoRow) error

	// AppendChunk stages one drained chunk for persistence.
	AppendChunk(chunk int, data acq.ChunkData) error

	// Flush makes all staged chunks durable.
	Flush() error

	// Close flushes and releases the sink.
	Close() error
}

// recoverTo converts a panic into an error assigned through err. It bridges
// the panicking recorder layer to the error-returning Sink API.
func recoverTo(err *error) {
	r := recover()
	if r == nil {
		return
	}

	if e, ok := r.(error); ok {
		*err = e
		return
	}

	*err = fmt.Errorf("%v", r)
}
