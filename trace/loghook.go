package trace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

// LogHook logs one record per cycle at pipeline.LevelTrace.
type LogHook struct {
	logger  *slog.Logger
	decoder *insts.Decoder
}

// NewLogHook creates a LogHook. A nil logger uses the default logger.
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogHook{
		logger:  logger,
		decoder: insts.NewDecoder(),
	}
}

// Func logs the snapshot carried by a cycle hook.
func (h *LogHook) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}

	h.logger.Log(context.Background(), pipeline.LevelTrace, "cycle",
		"cycle", snap.Cycle,
		"pc", fmt.Sprintf("0x%08x", snap.PC),
		"if", h.describe(snap.IFID.Valid, snap.IFID.PC, h.decoder.Decode(snap.IFID.InstructionWord)),
		"id", h.describe(snap.IDEX.Valid, snap.IDEX.PC, snap.IDEX.Inst),
		"ex", h.describe(snap.EXMEM.Valid, snap.EXMEM.PC, snap.EXMEM.Inst),
		"mem", h.describe(snap.MEMWB.Valid, snap.MEMWB.PC, snap.MEMWB.Inst),
		"stall", snap.Stall.String(),
	)
}

func (h *LogHook) describe(valid bool, pc uint32, inst *insts.Instruction) string {
	if !valid || inst == nil {
		return "-"
	}
	return insts.Disassemble(inst, pc)
}
