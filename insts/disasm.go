package insts

import "fmt"

// Disassemble renders inst as RISC-V assembly text, recognizing the
// pseudo-instruction spellings (NOP, MV, NOT, J, RET, ...) the way a
// human-authored disassembly would, the same as the base ISA's
// pseudo-op table.
func Disassemble(inst Instruction) string {
	switch inst.Op {
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", loadName(inst.Op), inst.Rd, inst.Imm, inst.Rs1)
	case OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s x%d, %d(x%d)", storeName(inst.Op), inst.Rs2, inst.Imm, inst.Rs1)
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		if inst.Rs2 == 0 && inst.Op == OpBEQ {
			return fmt.Sprintf("beqz x%d, %d", inst.Rs1, inst.Imm)
		}
		if inst.Rs2 == 0 && inst.Op == OpBNE {
			return fmt.Sprintf("bnez x%d, %d", inst.Rs1, inst.Imm)
		}
		return fmt.Sprintf("%s x%d, x%d, %d", branchName(inst.Op), inst.Rs1, inst.Rs2, inst.Imm)
	case OpJALR:
		if inst.Rd == 0 && inst.Rs1 == 1 && inst.Imm == 0 {
			return "ret"
		}
		return fmt.Sprintf("jalr x%d, %d(x%d)", inst.Rd, inst.Imm, inst.Rs1)
	case OpJAL:
		if inst.Rd == 0 {
			return fmt.Sprintf("j %d", inst.Imm)
		}
		return fmt.Sprintf("jal x%d, %d", inst.Rd, inst.Imm)
	case OpADDI:
		if inst.Rd == 0 && inst.Rs1 == 0 && inst.Imm == 0 {
			return "nop"
		}
		if inst.Imm == 0 {
			return fmt.Sprintf("mv x%d, x%d", inst.Rd, inst.Rs1)
		}
		return fmt.Sprintf("addi x%d, x%d, %d", inst.Rd, inst.Rs1, inst.Imm)
	case OpXORI:
		if inst.Imm == -1 {
			return fmt.Sprintf("not x%d, x%d", inst.Rd, inst.Rs1)
		}
		return fmt.Sprintf("xori x%d, x%d, %d", inst.Rd, inst.Rs1, inst.Imm)
	case OpSLLI, OpSRLI, OpSRAI:
		return fmt.Sprintf("%s x%d, x%d, %d", opImmName(inst.Op), inst.Rd, inst.Rs1, inst.Imm&0x1F)
	case OpSLTI, OpSLTIU, OpORI, OpANDI:
		return fmt.Sprintf("%s x%d, x%d, %d", opImmName(inst.Op), inst.Rd, inst.Rs1, inst.Imm)
	case OpADD, OpSUB, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpSRA, OpOR, OpAND,
		OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU:
		return fmt.Sprintf("%s x%d, x%d, x%d", opName(inst.Op), inst.Rd, inst.Rs1, inst.Rs2)
	case OpLUI:
		return fmt.Sprintf("lui x%d, %#x", inst.Rd, uint32(inst.Imm)>>12)
	case OpAUIPC:
		return fmt.Sprintf("auipc x%d, %#x", inst.Rd, uint32(inst.Imm)>>12)
	case OpECALL:
		return "ecall"
	case OpEBREAK:
		return "ebreak"
	case OpCSRRW:
		return fmt.Sprintf("csrrw x%d, %#x, x%d", inst.Rd, inst.Imm, inst.Rs1)
	case OpCSRRS:
		return fmt.Sprintf("csrrs x%d, %#x, x%d", inst.Rd, inst.Imm, inst.Rs1)
	case OpFENCE:
		return "fence"
	case OpUnimplemented32:
		return "unimp.32"
	case OpLRW:
		return fmt.Sprintf("lr.w x%d, (x%d)", inst.Rd, inst.Rs1)
	case OpSCW:
		return fmt.Sprintf("sc.w x%d, x%d, (x%d)", inst.Rd, inst.Rs2, inst.Rs1)
	case OpAMOSWAPW:
		return fmt.Sprintf("amoswap.w x%d, x%d, (x%d)", inst.Rd, inst.Rs2, inst.Rs1)
	case OpAMOADDW:
		return fmt.Sprintf("amoadd.w x%d, x%d, (x%d)", inst.Rd, inst.Rs2, inst.Rs1)
	default:
		return fmt.Sprintf("unknown (%#08x)", inst.Word)
	}
}

func loadName(op Op) string {
	switch op {
	case OpLB:
		return "lb"
	case OpLH:
		return "lh"
	case OpLW:
		return "lw"
	case OpLBU:
		return "lbu"
	default:
		return "lhu"
	}
}

func storeName(op Op) string {
	switch op {
	case OpSB:
		return "sb"
	case OpSH:
		return "sh"
	default:
		return "sw"
	}
}

func branchName(op Op) string {
	switch op {
	case OpBEQ:
		return "beq"
	case OpBNE:
		return "bne"
	case OpBLT:
		return "blt"
	case OpBGE:
		return "bge"
	case OpBLTU:
		return "bltu"
	default:
		return "bgeu"
	}
}

func opImmName(op Op) string {
	switch op {
	case OpSLTI:
		return "slti"
	case OpSLTIU:
		return "sltiu"
	case OpORI:
		return "ori"
	case OpANDI:
		return "andi"
	case OpSLLI:
		return "slli"
	case OpSRLI:
		return "srli"
	default:
		return "srai"
	}
}

func opName(op Op) string {
	switch op {
	case OpADD:
		return "add"
	case OpSUB:
		return "sub"
	case OpSLL:
		return "sll"
	case OpSLT:
		return "slt"
	case OpSLTU:
		return "sltu"
	case OpXOR:
		return "xor"
	case OpSRL:
		return "srl"
	case OpSRA:
		return "sra"
	case OpOR:
		return "or"
	case OpAND:
		return "and"
	case OpMUL:
		return "mul"
	case OpMULH:
		return "mulh"
	case OpMULHSU:
		return "mulhsu"
	case OpMULHU:
		return "mulhu"
	case OpDIV:
		return "div"
	case OpDIVU:
		return "divu"
	case OpREM:
		return "rem"
	default:
		return "remu"
	}
}
