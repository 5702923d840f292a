// Package loader provides ELF binary loading for RV32 executables.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors Load wraps, so embedders can distinguish "wrong kind
// of ELF" from I/O and format failures with errors.Is.
var (
	ErrUnsupportedClass   = errors.New("not a 32-bit ELF file")
	ErrUnsupportedMachine = errors.New("not a RISC-V ELF file")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultBase is the address a flat (non-ELF) guest image is loaded at
// when no ELF program header supplies one.
const DefaultBase = 0x1000

// DefaultStackTop is the default stack top address for an RV32 guest;
// comfortably below the 4GiB ceiling, leaving room above for whatever
// the guest's own linker script reserves.
const DefaultStackTop = 0xF0000000

// DefaultStackSize is the default stack size (8MB).
const DefaultStackSize = 8 * 1024 * 1024

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint32

	symbols map[string]uint32
}

// Load parses an RV32 ELF binary and returns a Program struct ready for
// loading into the emulator's memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%s: %w (class: %v)", path, ErrUnsupportedClass, f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%s: %w (machine type: %v)", path, ErrUnsupportedMachine, f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		InitialSP:  DefaultStackTop,
		symbols:    make(map[string]uint32),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	syms, err := f.Symbols()
	if err == nil {
		for _, s := range syms {
			if s.Name != "" {
				prog.symbols[s.Name] = uint32(s.Value)
			}
		}
	}

	return prog, nil
}

// LoadFlat wraps a bare, ELF-less guest image (the common case for the
// sample hosts in this repository) as a single RWX segment based at
// DefaultBase, so callers can treat flat and ELF images identically.
func LoadFlat(image []byte) *Program {
	return &Program{
		EntryPoint: DefaultBase,
		InitialSP:  DefaultStackTop,
		symbols:    make(map[string]uint32),
		Segments: []Segment{{
			VirtAddr: DefaultBase,
			Data:     image,
			MemSize:  uint32(len(image)),
			Flags:    SegmentFlagExecute | SegmentFlagWrite | SegmentFlagRead,
		}},
	}
}

// ResolveSymbol implements mem.SymbolResolver against the ELF symbol
// table read at Load time. A flat image built by LoadFlat carries no
// symbols and always reports a miss.
func (p *Program) ResolveSymbol(name string) (uint32, bool) {
	addr, ok := p.symbols[name]
	return addr, ok
}
