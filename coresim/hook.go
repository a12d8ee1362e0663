package coresim

import "github.com/aqclab/ventana/rtio"

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookPosBeforeOp is a hook position that triggers before an op executes
var HookPosBeforeOp = &HookPos{Name: "BeforeOp"}

// HookPosAfterOp is a hook position that triggers after an op executes
var HookPosAfterOp = &HookPos{Name: "AfterOp"}

// HookCtx is the context that holds all the information about the site
// that a hook is triggered
type HookCtx struct {
	Domain  *Device
	Pos     *HookPos
	Op      rtio.Op
	Counter rtio.TimeMu
}

// Hook is a short piece of program that a device invokes as it executes
// ops.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}
