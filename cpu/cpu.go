package cpu

// BreakCallback is invoked when execution reaches a breakpointed PC.
// The callback may inspect or mutate CPU state; setting break via
// c.BreakNow() hands control to the debugger REPL at this boundary.
type BreakCallback func(c *CPU)

// CPU holds the integer register file plus the breakpoint/step-limit
// bookkeeping the debugger REPL manipulates. It has no notion of
// syscalls or the simulate loop itself — that belongs to Machine, which
// embeds a CPU and a *mem.Memory side by side.
type CPU struct {
	Regs RegFile

	// VerboseInstructions, when true, causes Machine.Step to log each
	// instruction after it executes without trapping. VerboseJumps logs every
	// PC redirect, VerboseRegisters dumps the register file after each
	// retired instruction.
	VerboseInstructions bool
	VerboseJumps        bool
	VerboseRegisters    bool

	breakpoints map[uint32]BreakCallback

	// breaking is set by BreakNow (directly, or from a breakpoint
	// callback) once print_and_pause should run on the next instruction
	// boundary. Step-counter expiry (below) pauses without setting it.
	breaking bool

	// stepsRemaining counts down on every instruction once a step-limit
	// is armed; when it reaches zero it is reloaded from stepsReload and
	// the debugger pauses, so "step N" keeps pausing every N
	// instructions until continue disarms it.
	stepsArmed     bool
	stepsRemaining int
	stepsReload    int

	// fflags and frm back the fflags/frm/fcsr CSRs. No floating-point
	// instruction in this core ever sets fflags itself; the registers
	// exist only so CSRRW/CSRRS against them round-trips the way a
	// probe for F-extension support expects.
	fflags uint8
	frm    uint8
}

// NewCPU returns a CPU with an empty register file and no breakpoints.
func NewCPU() *CPU {
	return &CPU{breakpoints: make(map[uint32]BreakCallback)}
}

// Breakpoint installs a pause-the-debugger breakpoint at addr.
func (c *CPU) Breakpoint(addr uint32) {
	c.BreakpointFunc(addr, func(c *CPU) { c.BreakNow() })
}

// BreakpointFunc installs cb to run whenever execution reaches addr,
// replacing any breakpoint already there. The callback runs on the
// simulating goroutine and pauses nothing by itself.
func (c *CPU) BreakpointFunc(addr uint32, cb BreakCallback) {
	c.breakpoints[addr] = cb
}

// Breakpoints returns the addresses that currently hold breakpoints.
func (c *CPU) Breakpoints() []uint32 {
	out := make([]uint32, 0, len(c.breakpoints))
	for addr := range c.breakpoints {
		out = append(out, addr)
	}
	return out
}

// ClearBreakpoints removes every installed breakpoint.
func (c *CPU) ClearBreakpoints() {
	c.breakpoints = make(map[uint32]BreakCallback)
}

// BreakNow requests a debugger pause at the next instruction boundary.
func (c *CPU) BreakNow() {
	c.breaking = true
}

// BreakOnSteps arms the step counter: the debugger pauses every steps
// instructions from now on. Passing 0 disarms stepping and lets the
// machine run free until a breakpoint (continue).
func (c *CPU) BreakOnSteps(steps int) {
	if steps <= 0 {
		c.stepsArmed = false
		c.stepsReload = 0
		return
	}
	c.stepsArmed = true
	c.stepsReload = steps
	c.stepsRemaining = steps
}

// breakActive reports whether any break condition could fire, so the
// simulate loop can skip breakChecks entirely on the hot path.
func (c *CPU) breakActive() bool {
	return c.breaking || c.stepsArmed || len(c.breakpoints) > 0
}

// breakTime is called once per retired instruction. It reports whether
// execution should pause now, counting down the armed step budget
// first (mirroring the original's break_time: check m_break, else
// decrement the step counter and reload it from the armed count when
// it reaches zero).
func (c *CPU) breakTime() bool {
	if c.breaking {
		c.breaking = false
		return true
	}
	if c.stepsArmed {
		c.stepsRemaining--
		if c.stepsRemaining <= 0 {
			c.stepsRemaining = c.stepsReload
			return true
		}
	}
	return false
}

// breakChecks is called once per retired instruction at the new PC. It
// reports whether the debugger should take over: either the step budget
// expired (breakTime), or the new PC carries a breakpoint whose
// callback requested a pause.
func (c *CPU) breakChecks() bool {
	if c.breakTime() {
		return true
	}
	if cb, ok := c.breakpoints[c.Regs.PC]; ok {
		cb(c)
		if c.breaking {
			c.breaking = false
			return true
		}
	}
	return false
}
