// Package insts decodes RV32IM machine words into a neutral
// Instruction value and knows how to disassemble one back to text. It
// has no notion of a running CPU: execution against register/memory
// state lives in the cpu package, which switches on the Op/Format
// pairs this package produces.
package insts

// Op identifies a decoded operation, independent of its addressing
// format.
type Op uint16

// RV32I/M opcodes. Names follow the mnemonics used in the ISA manual
// rather than the raw opcode-field bit patterns.
const (
	OpUnknown Op = iota
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpJALR
	OpJAL
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpLUI
	OpAUIPC
	OpECALL
	OpEBREAK
	OpCSRRW
	OpCSRRS
	OpFENCE
	// RV32 has no meaning for the 64-bit-only OP-IMM-32/OP-32 opcode
	// classes; they decode but always execute as UnimplementedInstruction.
	OpUnimplemented32
	// RV32A, decoded only when Decoder.EnableAtomic is set.
	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
)

// Format identifies an instruction's field layout.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Instruction is the decoded form of one 32-bit RV32IM machine word,
// or (when Compressed is set) one 16-bit RVC word widened to this
// shape by the compressed decoder.
type Instruction struct {
	Op     Op
	Format Format
	Word   uint32

	Rd, Rs1, Rs2 uint8
	Funct3       uint8
	Funct7       uint8
	// Imm is sign-extended per the format (I/S/B: 12 bits; U: 20 bits
	// shifted into place; J: 20 bits shifted into place).
	Imm int32

	// Compressed marks an instruction decoded from a 16-bit RVC
	// encoding rather than the 32-bit base ISA; Word holds only the
	// low 16 bits in that case.
	Compressed bool
}

// Decoder decodes RV32IM machine words.
type Decoder struct {
	// EnableCompressed gates recognition of 16-bit RVC encodings when
	// the low 2 bits of a fetched halfword are not 0b11.
	EnableCompressed bool

	// EnableAtomic gates recognition of the RV32A AMO opcode class
	// (0x2F); when false, words with that opcode decode to OpUnknown
	// the same as any other unrecognized encoding.
	EnableAtomic bool
}

// NewDecoder creates a decoder with the base RV32IM instruction set.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit machine word into an Instruction. Decode
// never rejects a syntactically valid opcode/funct3/funct7 combination
// itself; funct3/funct7 combinations with no defined meaning decode to
// OpUnknown and it is cpu's job to raise IllegalOperation for those.
func (d *Decoder) Decode(word uint32) Instruction {
	opcode := word & 0x7F
	inst := Instruction{Word: word}

	rd := uint8((word >> 7) & 0x1F)
	funct3 := uint8((word >> 12) & 0x7)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct7 := uint8((word >> 25) & 0x7F)

	switch opcode {
	case 0x03: // LOAD
		inst.Format = FormatI
		inst.Rd, inst.Rs1, inst.Funct3 = rd, rs1, funct3
		inst.Imm = signExtend(word>>20, 12)
		inst.Op = loadOp(funct3)
	case 0x23: // STORE
		inst.Format = FormatS
		inst.Rs1, inst.Rs2, inst.Funct3 = rs1, rs2, funct3
		imm := (word>>25)<<5 | (word>>7)&0x1F
		inst.Imm = signExtend(imm, 12)
		inst.Op = storeOp(funct3)
	case 0x63: // BRANCH
		inst.Format = FormatB
		inst.Rs1, inst.Rs2, inst.Funct3 = rs1, rs2, funct3
		imm := ((word>>31)&0x1)<<12 | ((word>>7)&0x1)<<11 |
			((word>>25)&0x3F)<<5 | ((word>>8)&0xF)<<1
		inst.Imm = signExtend(imm, 13)
		inst.Op = branchOp(funct3)
	case 0x67: // JALR
		inst.Format = FormatI
		inst.Rd, inst.Rs1, inst.Funct3 = rd, rs1, funct3
		inst.Imm = signExtend(word>>20, 12)
		inst.Op = OpJALR
	case 0x6F: // JAL
		inst.Format = FormatJ
		inst.Rd = rd
		imm := ((word>>31)&0x1)<<20 | ((word>>12)&0xFF)<<12 |
			((word>>20)&0x1)<<11 | ((word>>21)&0x3FF)<<1
		inst.Imm = signExtend(imm, 21)
		inst.Op = OpJAL
	case 0x13: // OP-IMM
		inst.Format = FormatI
		inst.Rd, inst.Rs1, inst.Funct3 = rd, rs1, funct3
		inst.Imm = signExtend(word>>20, 12)
		inst.Funct7 = funct7
		inst.Op = opImmOp(funct3, funct7)
	case 0x33: // OP
		inst.Format = FormatR
		inst.Rd, inst.Rs1, inst.Rs2, inst.Funct3, inst.Funct7 = rd, rs1, rs2, funct3, funct7
		inst.Op = opOp(funct3, funct7)
	case 0x37: // LUI
		inst.Format = FormatU
		inst.Rd = rd
		inst.Imm = int32(word & 0xFFFFF000)
		inst.Op = OpLUI
	case 0x17: // AUIPC
		inst.Format = FormatU
		inst.Rd = rd
		inst.Imm = int32(word & 0xFFFFF000)
		inst.Op = OpAUIPC
	case 0x73: // SYSTEM
		inst.Format = FormatI
		inst.Rd, inst.Rs1, inst.Funct3 = rd, rs1, funct3
		inst.Imm = int32((word >> 20) & 0xFFF)
		inst.Op = systemOp(funct3, inst.Imm)
	case 0x0F: // FENCE / MISC-MEM
		inst.Format = FormatI
		inst.Op = OpFENCE
	case 0x1B, 0x3B: // OP-IMM-32 / OP-32 (RV64-only)
		inst.Format = FormatR
		inst.Op = OpUnimplemented32
	case 0x2F: // AMO (RV32A)
		if !d.EnableAtomic {
			inst.Op = OpUnknown
			break
		}
		inst.Format = FormatR
		inst.Rd, inst.Rs1, inst.Rs2, inst.Funct3 = rd, rs1, rs2, funct3
		inst.Funct7 = funct7
		inst.Op = amoOp(funct7 >> 2)
	default:
		inst.Op = OpUnknown
	}

	return inst
}

func loadOp(funct3 uint8) Op {
	switch funct3 {
	case 0:
		return OpLB
	case 1:
		return OpLH
	case 2:
		return OpLW
	case 4:
		return OpLBU
	case 5:
		return OpLHU
	default:
		return OpUnknown
	}
}

func storeOp(funct3 uint8) Op {
	switch funct3 {
	case 0:
		return OpSB
	case 1:
		return OpSH
	case 2:
		return OpSW
	default:
		return OpUnknown
	}
}

func branchOp(funct3 uint8) Op {
	switch funct3 {
	case 0:
		return OpBEQ
	case 1:
		return OpBNE
	case 4:
		return OpBLT
	case 5:
		return OpBGE
	case 6:
		return OpBLTU
	case 7:
		return OpBGEU
	default:
		return OpUnknown
	}
}

// isSRAI reports whether an OP-IMM shift-right's funct7 top bit (bit
// 30 of the word, i.e. bit 5 of funct7) selects the arithmetic
// (sign-preserving) variant.
func isSRAI(funct7 uint8) bool { return funct7&0x20 != 0 }

func opImmOp(funct3, funct7 uint8) Op {
	switch funct3 {
	case 0:
		return OpADDI
	case 1:
		return OpSLLI
	case 2:
		return OpSLTI
	case 3:
		return OpSLTIU
	case 4:
		return OpXORI
	case 5:
		if isSRAI(funct7) {
			return OpSRAI
		}
		return OpSRLI
	case 6:
		return OpORI
	case 7:
		return OpANDI
	default:
		return OpUnknown
	}
}

func opOp(funct3, funct7 uint8) Op {
	isM := funct7 == 0x01
	switch {
	case isM && funct3 == 0:
		return OpMUL
	case isM && funct3 == 1:
		return OpMULH
	case isM && funct3 == 2:
		return OpMULHSU
	case isM && funct3 == 3:
		return OpMULHU
	case isM && funct3 == 4:
		return OpDIV
	case isM && funct3 == 5:
		return OpDIVU
	case isM && funct3 == 6:
		return OpREM
	case isM && funct3 == 7:
		return OpREMU
	}

	switch funct3 {
	case 0:
		if funct7&0x20 != 0 {
			return OpSUB
		}
		return OpADD
	case 1:
		return OpSLL
	case 2:
		return OpSLT
	case 3:
		return OpSLTU
	case 4:
		return OpXOR
	case 5:
		if funct7&0x20 != 0 {
			return OpSRA
		}
		return OpSRL
	case 6:
		return OpOR
	case 7:
		return OpAND
	default:
		return OpUnknown
	}
}

func systemOp(funct3 uint8, imm int32) Op {
	switch funct3 {
	case 0:
		switch imm {
		case 0:
			return OpECALL
		case 1:
			return OpEBREAK
		default:
			return OpUnknown
		}
	case 1:
		return OpCSRRW
	case 2:
		return OpCSRRS
	default:
		return OpUnknown
	}
}

// signExtend sign-extends the low `bits` bits of v (a zero-extended
// field already shifted into its natural position by the caller).
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
