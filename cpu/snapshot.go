package cpu

import (
	"encoding/gob"
	"io"

	"github.com/sarchlab/rv32emu/mem"
)

// Snapshot is the reserved persisted-state format hinted at by the
// SerializedMachine<W> type in the original: a register file, the
// dirty (non-default) page contents, and the resolved-symbol cache.
// Nothing in this package writes one automatically — it exists for an
// embedder that wants to checkpoint and resume a guest.
type Snapshot struct {
	Regs             RegFile
	InstructionCount uint64
	ExitCode         int32
	Pages            map[uint32]mem.PageImage
	Symbols          map[string]uint32
}

// Snapshot captures the machine's register file, instruction counter,
// and every materialized (non-default) page into a Snapshot.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Regs:             m.CPU.Regs,
		InstructionCount: m.instructionCount,
		ExitCode:         m.exitCode,
		Pages:            m.Memory.DirtyPages(),
		Symbols:          m.Memory.SymbolCache(),
	}
}

// Restore replaces the machine's register file and page store contents
// with those recorded in s, leaving installed syscall handlers,
// breakpoints, and decoder settings untouched.
func (m *Machine) Restore(s Snapshot) {
	m.CPU.Regs = s.Regs
	m.instructionCount = s.InstructionCount
	m.exitCode = s.ExitCode
	m.Memory.RestoreDirtyPages(s.Pages)
	m.Memory.RestoreSymbolCache(s.Symbols)
}

// EncodeSnapshot gob-encodes the machine's current state to w, the wire
// format an embedder would write to a checkpoint file.
func EncodeSnapshot(w io.Writer, m *Machine) error {
	return gob.NewEncoder(w).Encode(m.Snapshot())
}

// DecodeSnapshot decodes a stream previously produced by EncodeSnapshot.
// The result is handed to Machine.Restore.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
