// Package main provides the entry point for rv32emu, the sample host
// that loads a guest binary and runs it to completion, wiring up the
// four example syscalls the original's host program installs.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/rv32emu/cpu"
	"github.com/sarchlab/rv32emu/loader"
	"github.com/sarchlab/rv32emu/mem"
)

const (
	syscallEBreak  = 0
	syscallOpenAt  = 56
	syscallClose   = 57
	syscallRead    = 63
	syscallWrite   = 64
	syscallExit    = 93
	syscallSendInt = 666
)

var (
	debug      = flag.Bool("debug", false, "Drop into the interactive debugger on EBREAK or a breakpoint")
	verbose    = flag.Bool("v", false, "Log every retired instruction")
	compressed = flag.Bool("c", false, "Enable the compressed (RVC) instruction subset")
	atomic     = flag.Bool("a", false, "Enable the atomic (RVA) instruction subset")
	configPath = flag.String("config", "", "Load machine settings from a JSON config file; -v, -c and -a are ORed into it")
	breakAddrs breakpointList
)

// breakpointList accumulates repeated -b ADDR flags.
type breakpointList []uint32

func (b *breakpointList) String() string { return fmt.Sprint([]uint32(*b)) }

func (b *breakpointList) Set(value string) error {
	addr, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("invalid breakpoint address %q: %w", value, err)
	}
	*b = append(*b, uint32(addr))
	return nil
}

func main() {
	flag.Var(&breakAddrs, "b", "Install a breakpoint at ADDR (hex); repeatable")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv32emu [options] <guest-binary>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	exitCode := run(flag.Arg(0))
	os.Exit(exitCode)
}

func run(path string) int {
	prog, err := loadProgram(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	cfg.Verbose = cfg.Verbose || *verbose
	cfg.EnableCompressed = cfg.EnableCompressed || *compressed
	cfg.EnableAtomic = cfg.EnableAtomic || *atomic

	opts := cfg.Options()
	if *debug {
		opts = append(opts, cpu.WithDebugger(os.Stdin, os.Stdout))
	}
	m := cpu.NewMachine(opts...)
	cfg.Apply(m)

	loadSegments(m.Memory, prog)
	m.LoadEntry(prog.EntryPoint)
	m.Memory.SetSymbolResolver(prog)
	m.CPU.Regs.WriteReg(2, prog.InitialSP) // sp

	// A guest that links an exit thunk halts when main returns into it.
	if addr, ok := m.Memory.ResolveAddress("_exit"); ok {
		m.Memory.SetExitAddress(addr)
		m.CPU.Regs.WriteReg(cpu.RegRA, addr)
	}

	m.Memory.SealInitial()

	for _, addr := range breakAddrs {
		m.CPU.Breakpoint(addr)
	}
	if *debug {
		// Open the REPL at the first instruction boundary.
		m.CPU.BreakNow()
	}

	installSampleSyscalls(m)

	if err := m.Simulate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return int(m.ExitCode())
}

// loadConfig reads a MachineConfig from path, or returns the zero value
// when path is empty: a -config flag is optional, and CLI flags alone
// are enough to run a guest without one.
func loadConfig(path string) (cpu.MachineConfig, error) {
	var cfg cpu.MachineConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// loadProgram reads path as an ELF binary when it carries the ELF
// magic, falling back to treating it as a flat guest image the way the
// original's load_file does.
func loadProgram(path string) (*loader.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte{0x7f, 'E', 'L', 'F'}) {
		return loader.Load(path)
	}
	return loader.LoadFlat(data), nil
}

func loadSegments(m *mem.Memory, prog *loader.Program) {
	for _, seg := range prog.Segments {
		_ = m.Memcpy(seg.VirtAddr, seg.Data)
		if seg.MemSize > uint32(len(seg.Data)) {
			_ = m.Memset(seg.VirtAddr+uint32(len(seg.Data)), 0, int(seg.MemSize-uint32(len(seg.Data))))
		}
		_ = m.SetPageAttr(seg.VirtAddr, int(seg.MemSize), mem.Attrs{
			Read:  seg.Flags&loader.SegmentFlagRead != 0,
			Write: seg.Flags&loader.SegmentFlagWrite != 0,
			Exec:  seg.Flags&loader.SegmentFlagExecute != 0,
		})
	}
}

// installSampleSyscalls wires the example bindings the original host
// installs (ebreak, write, exit, sendint) plus the openat/close/read
// file-I/O set backed by the Machine's FD table. These are sample
// bindings, not part of the core.
func installSampleSyscalls(m *cpu.Machine) {
	m.InstallSyscallHandler(syscallEBreak, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		// PC already points past the 4-byte EBREAK by the time the
		// handler runs.
		fmt.Fprintf(m.Stdout(), "\n>>> EBREAK at %#x", m.CPU.Regs.PC-4)
		m.CPU.BreakNow()
		return cpu.SyscallResult{}, 0
	}))

	m.InstallSyscallHandler(syscallOpenAt, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		// a0 = dirfd (only AT_FDCWD-relative paths are supported), a1 =
		// path, a2 = flags, a3 = mode.
		path := m.Memory.Memstring(m.CPU.Regs.ReadReg(cpu.RegArg1), 4096)
		flags := int(m.CPU.Regs.ReadReg(cpu.RegArg2))
		mode := os.FileMode(m.CPU.Regs.ReadReg(cpu.RegArg3) & 0o777)
		fd, err := m.FDTable.Open(path, flags, mode)
		if err != nil {
			return cpu.SyscallResult{}, ^uint32(0)
		}
		return cpu.SyscallResult{}, fd
	}))

	m.InstallSyscallHandler(syscallClose, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		if err := m.FDTable.Close(m.CPU.Regs.ReadReg(cpu.RegArg0)); err != nil {
			return cpu.SyscallResult{}, ^uint32(0)
		}
		return cpu.SyscallResult{}, 0
	}))

	m.InstallSyscallHandler(syscallRead, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		fd := m.CPU.Regs.ReadReg(cpu.RegArg0)
		addr := m.CPU.Regs.ReadReg(cpu.RegArg1)
		length := m.CPU.Regs.ReadReg(cpu.RegArg2)
		buf := make([]byte, length)
		n, err := m.FDTable.Read(fd, buf)
		if err != nil {
			return cpu.SyscallResult{}, ^uint32(0)
		}
		_ = m.Memory.Memcpy(addr, buf[:n])
		return cpu.SyscallResult{}, uint32(n)
	}))

	m.InstallSyscallHandler(syscallWrite, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		fd := m.CPU.Regs.ReadReg(cpu.RegArg0)
		addr := m.CPU.Regs.ReadReg(cpu.RegArg1)
		length := m.CPU.Regs.ReadReg(cpu.RegArg2)
		buf := make([]byte, length)
		m.Memory.MemcpyOut(buf, addr)
		switch fd {
		case 1:
			n, _ := m.Stdout().Write(buf)
			return cpu.SyscallResult{}, uint32(n)
		case 2:
			n, _ := m.Stderr().Write(buf)
			return cpu.SyscallResult{}, uint32(n)
		default:
			n, err := m.FDTable.Write(fd, buf)
			if err != nil {
				return cpu.SyscallResult{}, ^uint32(0)
			}
			return cpu.SyscallResult{}, uint32(n)
		}
	}))

	m.InstallSyscallHandler(syscallExit, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		code := int32(m.CPU.Regs.ReadReg(cpu.RegArg0))
		fmt.Fprintf(m.Stdout(), ">>> Program exited, exit code = %d\n", code)
		return cpu.SyscallResult{Exited: true, ExitCode: code}, 0
	}))

	m.InstallSyscallHandler(syscallSendInt, cpu.SyscallHandlerFunc(func(m *cpu.Machine) (cpu.SyscallResult, uint32) {
		arg0 := m.CPU.Regs.ReadReg(cpu.RegArg0)
		fmt.Fprintf(m.Stdout(), ">>> Received integer %d (%#x)\n", int32(arg0), arg0)
		return cpu.SyscallResult{}, 0
	}))
}
