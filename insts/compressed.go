package insts

// DecodeCompressed decodes a 16-bit RVC halfword into the widened
// Instruction shape the rest of the package and cpu's executor already
// understand. Only the handful of encodings the embedder is expected
// to hit in practice are implemented: C.ADDI, C.LI, C.MV, C.JR,
// C.BEQZ, C.BNEZ, C.LW, and C.SW. Anything else decodes to OpUnknown;
// it is cpu's job to raise UnimplementedInstruction for those (an
// unrecognized 32-bit word raises IllegalOperation instead).
func DecodeCompressed(half uint16) Instruction {
	inst := Instruction{Word: uint32(half), Compressed: true}
	quadrant := half & 0x3
	funct3 := uint8((half >> 13) & 0x7)

	switch {
	case quadrant == 0x1 && funct3 == 0: // C.ADDI
		rd := uint8((half >> 7) & 0x1F)
		inst.Format, inst.Op = FormatI, OpADDI
		inst.Rd, inst.Rs1 = rd, rd
		inst.Imm = ciImm(half)

	case quadrant == 0x1 && funct3 == 2: // C.LI
		rd := uint8((half >> 7) & 0x1F)
		inst.Format, inst.Op = FormatI, OpADDI
		inst.Rd, inst.Rs1 = rd, 0
		inst.Imm = ciImm(half)

	case quadrant == 0x2 && funct3 == 4: // CR format: C.MV / C.JR
		rd := uint8((half >> 7) & 0x1F)
		rs2 := uint8((half >> 2) & 0x1F)
		bit12 := (half >> 12) & 0x1
		switch {
		case bit12 == 0 && rs2 != 0: // C.MV rd, rs2
			inst.Format, inst.Op = FormatR, OpADD
			inst.Rd, inst.Rs1, inst.Rs2 = rd, 0, rs2
		case bit12 == 0 && rs2 == 0 && rd != 0: // C.JR rs1
			inst.Format, inst.Op = FormatI, OpJALR
			inst.Rd, inst.Rs1, inst.Imm = 0, rd, 0
		}

	case quadrant == 0x1 && (funct3 == 6 || funct3 == 7): // C.BEQZ / C.BNEZ
		rs1 := cCompressedReg(half, 7)
		inst.Format, inst.Rs1, inst.Rs2 = FormatB, rs1, 0
		inst.Imm = cbImm(half)
		if funct3 == 6 {
			inst.Op = OpBEQ
		} else {
			inst.Op = OpBNE
		}

	case quadrant == 0x0 && funct3 == 2: // C.LW
		inst.Format, inst.Op = FormatI, OpLW
		inst.Rd = cCompressedReg(half, 2)
		inst.Rs1 = cCompressedReg(half, 7)
		inst.Imm = clImm(half)

	case quadrant == 0x0 && funct3 == 6: // C.SW
		inst.Format, inst.Op = FormatS, OpSW
		inst.Rs2 = cCompressedReg(half, 2)
		inst.Rs1 = cCompressedReg(half, 7)
		inst.Imm = clImm(half)

	default:
		inst.Op = OpUnknown
	}

	return inst
}

// cCompressedReg extracts a 3-bit compressed register field starting
// at bit `shift` and maps it into the x8-x15 window the C extension's
// narrow register encodings are restricted to.
func cCompressedReg(half uint16, shift uint) uint8 {
	return 8 + uint8((half>>shift)&0x7)
}

// ciImm decodes the CI-format 6-bit signed immediate used by C.ADDI
// and C.LI: {inst[12], inst[6:2]}, sign-extended.
func ciImm(half uint16) int32 {
	raw := uint32((half>>12)&0x1)<<5 | uint32((half>>2)&0x1F)
	return signExtend(raw, 6)
}

// cbImm decodes the CB-format 9-bit signed branch offset used by
// C.BEQZ/C.BNEZ: {inst[12], inst[6:5], inst[2], inst[11:10], inst[4:3]}.
func cbImm(half uint16) int32 {
	b8 := uint32((half >> 12) & 0x1)
	b76 := uint32((half >> 5) & 0x3)
	b5 := uint32((half >> 2) & 0x1)
	b43 := uint32((half >> 10) & 0x3)
	b21 := uint32((half >> 3) & 0x3)
	raw := b8<<8 | b76<<6 | b5<<5 | b43<<3 | b21<<1
	return signExtend(raw, 9)
}

// clImm decodes the CL/CS-format 7-bit unsigned word offset shared by
// C.LW and C.SW: {inst[5], inst[12:10], inst[6]} scaled by 4.
func clImm(half uint16) int32 {
	imm6 := uint32((half >> 5) & 0x1)
	imm53 := uint32((half >> 10) & 0x7)
	imm2 := uint32((half >> 6) & 0x1)
	return int32(imm6<<6 | imm53<<3 | imm2<<2)
}
