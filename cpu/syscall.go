package cpu

// Calling-convention register numbers, per the standard RV32 integer
// ABI: a0-a7 are x10-x17, ra is x1.
const (
	RegRA    uint8 = 1
	RegArg0  uint8 = 10
	RegArg1  uint8 = 11
	RegArg2  uint8 = 12
	RegArg3  uint8 = 13
	RegArg4  uint8 = 14
	RegArg5  uint8 = 15
	RegECall uint8 = 17
)

// SyscallResult reports the effect of handling an ECALL.
type SyscallResult struct {
	// Exited is true when the call requested that the machine stop.
	Exited bool
	// ExitCode is meaningful only when Exited is true.
	ExitCode int32
}

// SyscallHandler services one ECALL trap. The handler reads its
// arguments from the CPU's register file and guest memory, and returns
// the value a0 is set to afterward (written even when it sets Exited).
type SyscallHandler interface {
	Handle(m *Machine) (result SyscallResult, a0 uint32)
}

// SyscallHandlerFunc adapts a plain function to SyscallHandler.
type SyscallHandlerFunc func(m *Machine) (SyscallResult, uint32)

func (f SyscallHandlerFunc) Handle(m *Machine) (SyscallResult, uint32) { return f(m) }

// SystemCall invokes the handler installed for number, writing its
// return value back to a0. A number with no installed handler raises
// UnknownSyscall rather than being silently ignored, mirroring the
// original's explicit-lookup install_syscall_handler/system_call split.
// ECALL and EBREAK both funnel through here; guest faults are looked
// up in the same table by dispatchException, under their reserved high
// numbers.
func (m *Machine) SystemCall(number uint32) error {
	handler, ok := m.syscalls[number]
	if !ok {
		return &Exception{Code: UnknownSyscall, PC: m.CPU.Regs.PC, Word: number}
	}

	result, a0 := handler.Handle(m)
	m.CPU.Regs.WriteReg(RegArg0, a0)
	if result.Exited {
		m.exitCode = result.ExitCode
		m.Stop()
	}
	return nil
}

// dispatchSyscall services ECALL: the syscall number is in a7.
func (m *Machine) dispatchSyscall() error {
	return m.SystemCall(m.CPU.Regs.ReadReg(RegECall))
}

// InstallSyscallHandler registers h to service ECALLs whose a7 value
// equals number, replacing any previously installed handler.
func (m *Machine) InstallSyscallHandler(number uint32, h SyscallHandler) {
	m.syscalls[number] = h
}
