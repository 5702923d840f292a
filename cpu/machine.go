package cpu

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rv32emu/insts"
	"github.com/sarchlab/rv32emu/mem"
)

// Machine ties together a CPU, its memory, the decoder, and the
// installed syscall handlers into one runnable simulate loop. It plays
// the role the original's Machine<W> struct does: cpu and memory
// side by side, plus the stop flag and syscall dispatch table.
type Machine struct {
	CPU    *CPU
	Memory *mem.Memory

	decoder  *insts.Decoder
	syscalls map[uint32]SyscallHandler
	FDTable  *FDTable

	stdout io.Writer
	stderr io.Writer

	instructionCount uint64
	exitCode         int32
	stopped          bool
	ebreakSyscall    uint32

	pendingFault *Exception

	debugMode bool
	debugger  *Debugger
}

// Option configures a Machine at construction time.
type Option func(*Machine)

// WithStdout sets the writer syscalls should treat as fd 1.
func WithStdout(w io.Writer) Option {
	return func(m *Machine) { m.stdout = w }
}

// WithStderr sets the writer syscalls should treat as fd 2.
func WithStderr(w io.Writer) Option {
	return func(m *Machine) { m.stderr = w }
}

// WithCompressed enables decoding of 16-bit RVC encodings.
func WithCompressed(enabled bool) Option {
	return func(m *Machine) { m.decoder.EnableCompressed = enabled }
}

// WithAtomic enables decoding of the RV32A AMO opcode class.
func WithAtomic(enabled bool) Option {
	return func(m *Machine) { m.decoder.EnableAtomic = enabled }
}

// WithVerbose turns on per-instruction disassembly logging.
func WithVerbose(enabled bool) Option {
	return func(m *Machine) { m.CPU.VerboseInstructions = enabled }
}

// WithMemoryTraps enables MMIO trap dispatch on reads and writes.
func WithMemoryTraps(enabled bool) Option {
	return func(m *Machine) { m.Memory.TrapsEnabled = enabled }
}

// WithEBreakSyscall overrides the syscall number EBREAK dispatches
// through (default 0).
func WithEBreakSyscall(number uint32) Option {
	return func(m *Machine) { m.ebreakSyscall = number }
}

// WithDebugger enables the interactive REPL: breakChecks runs after
// every retired instruction, and a hit breakpoint or expired step
// budget hands control to a Debugger reading from in and writing to
// out instead of returning from Step/Simulate.
func WithDebugger(in io.Reader, out io.Writer) Option {
	return func(m *Machine) {
		m.debugMode = true
		m.debugger = NewDebugger(m, in, out)
	}
}

// NewMachine constructs a Machine with an empty CPU and memory,
// applying opts afterward so options can see the fully-wired zero
// state (mirrors the teacher's NewEmulator: build the defaults, then
// let functional options override them).
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		CPU:      NewCPU(),
		Memory:   mem.NewMemory(),
		decoder:  insts.NewDecoder(),
		syscalls: make(map[uint32]SyscallHandler),
		FDTable:  NewFDTable(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	m.Memory.SetFaultHandler(m.onMemoryFault)

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMachineFromImage constructs a Machine whose memory is primed with
// image at address zero, and seals that as the state Reset returns to.
// (loader.LoadFlat bases a flat image at loader.DefaultBase instead.)
func NewMachineFromImage(image []byte, opts ...Option) *Machine {
	m := NewMachine(opts...)
	_ = m.Memory.Memcpy(0, image)
	m.Memory.SealInitial()
	return m
}

func (m *Machine) onMemoryFault(f mem.Fault, addr uint32) {
	code := ProtectionFault
	if f == mem.FaultMisaligned {
		code = MisalignedAccess
	}
	m.pendingFault = &Exception{Code: code, PC: m.CPU.Regs.PC, Word: addr}
}

// Stdout returns the writer installed syscalls should use for fd 1.
func (m *Machine) Stdout() io.Writer { return m.stdout }

// Stderr returns the writer installed syscalls should use for fd 2.
func (m *Machine) Stderr() io.Writer { return m.stderr }

// InstructionCount returns the number of instructions retired so far.
func (m *Machine) InstructionCount() uint64 { return m.instructionCount }

// ExitCode returns the code passed to the last exit syscall.
func (m *Machine) ExitCode() int32 { return m.exitCode }

// Stopped reports whether the machine has halted.
func (m *Machine) Stopped() bool { return m.stopped }

// Stop halts the simulate loop after the current instruction.
func (m *Machine) Stop() { m.stopped = true }

// Reset clears registers and execution counters and returns memory to
// its sealed initial image (empty when none was sealed), leaving
// installed syscall handlers and breakpoints untouched.
func (m *Machine) Reset() {
	m.CPU.Regs = RegFile{}
	m.Memory.Reset()
	m.instructionCount = 0
	m.exitCode = 0
	m.stopped = false
	m.pendingFault = nil
}

// LoadEntry sets the program counter to entry, the convention used
// after a loader has populated Memory with a program image.
func (m *Machine) LoadEntry(entry uint32) { m.CPU.Regs.PC = entry }

// fetch reads the next instruction at PC, trying a compressed 16-bit
// decode first when enabled (a halfword whose low 2 bits are not 0b11
// is always compressed per the C extension's quadrant scheme).
func (m *Machine) fetch() (insts.Instruction, uint32) {
	pc := m.CPU.Regs.PC
	if m.decoder.EnableCompressed {
		low := m.Memory.ReadU16(pc)
		if low&0x3 != 0x3 {
			return insts.DecodeCompressed(low), 2
		}
	}
	word := m.Memory.ReadU32(pc)
	return m.decoder.Decode(word), 4
}

// Step fetches, decodes, and executes exactly one instruction,
// advancing PC unless the instruction itself redirected it (a taken
// branch, JAL, JALR). It returns a non-nil error — always an
// *Exception — when the instruction traps. The instruction counter is
// bumped before the handler runs, so a CSR read of instret during the
// instruction observes a count that includes the instruction itself.
func (m *Machine) Step() error {
	pc := m.CPU.Regs.PC

	m.pendingFault = nil
	inst, width := m.fetch()
	if m.pendingFault != nil {
		fault := m.pendingFault
		m.pendingFault = nil
		fault.PC = pc
		return m.dispatchException(fault)
	}

	m.instructionCount++
	nextPC := pc + width
	if err := execute(m, inst, pc, nextPC); err != nil {
		if exc, ok := err.(*Exception); ok {
			return m.dispatchException(exc)
		}
		return err
	}
	if m.pendingFault != nil {
		fault := m.pendingFault
		m.pendingFault = nil
		fault.PC = pc
		return m.dispatchException(fault)
	}

	if m.CPU.VerboseInstructions {
		fmt.Fprintf(m.stderr, "%#08x: %s\n", pc, insts.Disassemble(inst))
	}
	if m.CPU.VerboseJumps && m.CPU.Regs.PC != nextPC {
		fmt.Fprintf(m.stderr, ">>> Jump from %#08x to %#08x\n", pc, m.CPU.Regs.PC)
	}
	if m.CPU.VerboseRegisters {
		fmt.Fprint(m.stderr, m.CPU.Regs.String())
	}

	if m.debugMode || m.CPU.breakActive() {
		if m.CPU.breakChecks() && m.debugger != nil {
			m.debugger.PrintAndPause()
		}
	}
	return nil
}

// dispatchException routes a guest fault through the same syscall
// table ECALL uses, keyed by the exception's reserved high number. An
// exception with no installed handler stops the machine and is
// returned to the caller instead of being silently swallowed.
func (m *Machine) dispatchException(exc *Exception) error {
	number := exc.Code.syscallNumber()
	handler, ok := m.syscalls[number]
	if !ok {
		m.Stop()
		return exc
	}

	result, a0 := handler.Handle(m)
	m.CPU.Regs.WriteReg(RegArg0, a0)
	if result.Exited {
		m.exitCode = result.ExitCode
		m.Stop()
	}
	return nil
}

// TriggerException routes code through the handler installed at its
// reserved syscall number, at the current PC, stopping the machine
// when none is installed. Embedders use it to inject a fault from a
// syscall or breakpoint callback.
func (m *Machine) TriggerException(code ExceptionCode) error {
	return m.dispatchException(&Exception{Code: code, PC: m.CPU.Regs.PC})
}

// TriggerDebugInterrupt raises a DebugInterrupt exception at the
// current PC, the same path the "debug" REPL command takes.
func (m *Machine) TriggerDebugInterrupt() error {
	return m.TriggerException(DebugInterrupt)
}

// Simulate runs Step in a loop until the machine stops, PC reaches the
// configured exit address, ctx is cancelled, or an instruction traps.
// A cancelled context is not itself reported as an Exception — callers
// distinguish the two by checking ctx.Err() after Simulate returns.
// This is the one place the Go port deliberately diverges from the
// original's bare void simulate(): a long-running guest needs a way to
// be interrupted from outside the instruction stream.
func (m *Machine) Simulate(ctx context.Context) error {
	for !m.stopped {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if exit := m.Memory.ExitAddress(); exit != 0 && m.CPU.Regs.PC == exit {
			m.Stop()
			return nil
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
