package coresim

import (
	"log"

	"github.com/aqclab/ventana/rtio"
)

// OpLogger is a hook that prints the ops a device executes
type OpLogger struct {
	*log.Logger
}

// NewOpLogger returns a new OpLogger which will write into the logger
func NewOpLogger(logger *log.Logger) *OpLogger {
	return &OpLogger{Logger: logger}
}

// Func writes the op information into the logger
func (l *OpLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeOp {
		return
	}

	op := ctx.Op
	switch op.Kind {
	case rtio.OpDigital:
		l.Printf("%d, ch %d, digital on=%v", op.At, op.Ch, op.On)
	case rtio.OpFrequency:
		l.Printf("%d, ch %d, freq %.0f Hz", op.At, op.Ch, float64(op.Freq))
	case rtio.OpAmplitude:
		l.Printf("%d, ch %d, amp %.3f", op.At, op.Ch, op.Amp)
	case rtio.OpGate:
		l.Printf("%d, ch %d, gate close %d", op.At, op.Ch, op.Close)
	}
}
