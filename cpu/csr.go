package cpu

import "github.com/sarchlab/rv32emu/insts"

// CSR addresses recognized by executeCSR. Everything else traps as
// IllegalOperation, the same as an unrecognized funct3/funct7 pairing.
const (
	csrFFlags   = 0x001
	csrFRM      = 0x002
	csrFCSR     = 0x003
	csrCycle    = 0xC00
	csrTime     = 0xC01
	csrInstret  = 0xC02
	csrCycleH   = 0xC80
	csrTimeH    = 0xC81
	csrInstretH = 0xC82
)

// executeCSR services CSRRW (funct3=1) and CSRRS (funct3=2) against the
// small subset of CSRs this core implements: fflags/frm/fcsr (always
// zero beyond whatever CSRRW/CSRRS most recently wrote, since no instruction
// here ever raises a floating-point flag) and the cycle/instret/time
// counter pairs. The read goes to rd only when rd != 0, and the write
// happens only when rs1 != 0 — for both CSRRW and CSRRS alike, unlike
// the official ISA's CSRRW (which always writes).
func (m *Machine) executeCSR(inst insts.Instruction, pc uint32) error {
	regs := &m.CPU.Regs
	addr := uint32(inst.Imm)

	old, ok := m.readCSR(addr)
	if !ok {
		return illegal(pc, inst.Word)
	}
	if inst.Rd != 0 {
		regs.WriteReg(inst.Rd, old)
	}

	if inst.Rs1 == 0 {
		return nil
	}
	rs1 := regs.ReadReg(inst.Rs1)

	var newValue uint32
	switch inst.Op {
	case insts.OpCSRRW:
		newValue = rs1
	case insts.OpCSRRS:
		newValue = old | rs1
	}
	if !m.writeCSR(addr, newValue) {
		return illegal(pc, inst.Word)
	}
	return nil
}

func (m *Machine) readCSR(addr uint32) (uint32, bool) {
	switch addr {
	case csrFFlags:
		return uint32(m.CPU.fflags), true
	case csrFRM:
		return uint32(m.CPU.frm), true
	case csrFCSR:
		return uint32(m.CPU.frm)<<5 | uint32(m.CPU.fflags), true
	case csrCycle, csrInstret:
		return uint32(m.instructionCount), true
	case csrCycleH, csrInstretH:
		return uint32(m.instructionCount >> 32), true
	case csrTime:
		return uint32(m.instructionCount), true
	case csrTimeH:
		return uint32(m.instructionCount >> 32), true
	default:
		return 0, false
	}
}

func (m *Machine) writeCSR(addr, value uint32) bool {
	switch addr {
	case csrFFlags:
		m.CPU.fflags = uint8(value & 0x1F)
	case csrFRM:
		m.CPU.frm = uint8(value & 0x7)
	case csrFCSR:
		m.CPU.fflags = uint8(value & 0x1F)
		m.CPU.frm = uint8((value >> 5) & 0x7)
	case csrCycle, csrInstret, csrCycleH, csrInstretH, csrTime, csrTimeH:
		// Counters are read-only from the guest's perspective; writes
		// are silently accepted rather than trapped, matching how a
		// real core treats a write to a read-only shadow of hardware
		// state it doesn't let software rewind.
	default:
		return false
	}
	return true
}
