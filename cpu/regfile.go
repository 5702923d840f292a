// Package cpu implements the RV32IM register file, instruction
// dispatch, syscall plumbing, and the debugger REPL shared by the
// interactive and batch simulate loops.
package cpu

import "fmt"

// RegFile represents the RV32I integer register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter. x0 is hardwired to zero; unlike ARM64, RV32 has no dedicated
// stack-pointer register — x2 is the stack pointer purely by software
// convention, so there is no ReadRegOrSP/WriteRegOrSP split here.
type RegFile struct {
	// X holds general-purpose registers x0-x31. X[0] is wired to zero:
	// ReadReg/WriteReg enforce this regardless of what is stored there.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are
// silently discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 {
		return
	}
	r.X[reg] = value
}

// ReadRegSigned reads a register value as a sign-extended int32, the
// form most ALU ops on signed operands want.
func (r *RegFile) ReadRegSigned(reg uint8) int32 {
	return int32(r.ReadReg(reg))
}

// String renders a multi-line register snapshot for the debugger,
// four registers per line, the same shape the original's
// registers().to_string() prints before dropping into the REPL.
func (r *RegFile) String() string {
	s := fmt.Sprintf("PC:  %#08x\n", r.PC)
	for i := 0; i < 32; i += 4 {
		s += fmt.Sprintf("x%-2d: %#08x  x%-2d: %#08x  x%-2d: %#08x  x%-2d: %#08x\n",
			i, r.X[i], i+1, r.X[i+1], i+2, r.X[i+2], i+3, r.X[i+3])
	}
	return s
}
