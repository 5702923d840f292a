package cpu

// MachineConfig is the JSON-serializable subset of Machine's
// construction-time settings an embedder can load from a file, the way
// the teacher's timing/latency package loads a TimingConfig. It exists
// so cmd/rv32emu can take a -config flag instead of one flag per knob.
type MachineConfig struct {
	AlignmentCheck   bool   `json:"alignmentCheck"`
	MemoryTraps      bool   `json:"memoryTraps"`
	ExitAddress      uint32 `json:"exitAddress"`
	SyscallEBreak    uint32 `json:"syscallEBreak"`
	EnableCompressed bool   `json:"enableCompressed"`
	EnableAtomic     bool   `json:"enableAtomic"`
	Verbose          bool   `json:"verbose"`
	VerboseJumps     bool   `json:"verboseJumps"`
	VerboseRegisters bool   `json:"verboseRegisters"`
}

// Options converts c into the functional options NewMachine expects.
func (c MachineConfig) Options() []Option {
	return []Option{
		WithCompressed(c.EnableCompressed),
		WithAtomic(c.EnableAtomic),
		WithMemoryTraps(c.MemoryTraps),
		WithVerbose(c.Verbose),
		WithEBreakSyscall(c.SyscallEBreak),
	}
}

// Apply sets the fields of c that aren't expressed as constructor
// Options directly on m. Called after NewMachine, since AlignmentCheck
// and ExitAddress live on m.Memory rather than on Machine itself.
func (c MachineConfig) Apply(m *Machine) {
	m.Memory.AlignmentCheck = c.AlignmentCheck
	if c.ExitAddress != 0 {
		m.Memory.SetExitAddress(c.ExitAddress)
	}
	m.CPU.VerboseJumps = m.CPU.VerboseJumps || c.VerboseJumps
	m.CPU.VerboseRegisters = m.CPU.VerboseRegisters || c.VerboseRegisters
}
