package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32emu/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("OP-IMM", func() {
		// ADDI x5, x6, 100
		It("should decode ADDI x5, x6, 100", func() {
			inst := decoder.Decode(0x06430293)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Imm).To(Equal(int32(100)))
		})

		// SRLI x1, x2, 3
		It("should decode SRLI x1, x2, 3", func() {
			inst := decoder.Decode(0x00315093)

			Expect(inst.Op).To(Equal(insts.OpSRLI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(3)))
		})

		// SRAI x1, x2, 3 (funct7 bit 5 set distinguishes it from SRLI)
		It("should decode SRAI x1, x2, 3", func() {
			inst := decoder.Decode(0x40315093)

			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
		})
	})

	Describe("OP", func() {
		// ADD x1, x2, x3
		It("should decode ADD x1, x2, x3", func() {
			inst := decoder.Decode(0x003100B3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})

		// SUB x1, x2, x3 (funct7 = 0x20 distinguishes it from ADD)
		It("should decode SUB x1, x2, x3", func() {
			inst := decoder.Decode(0x403100B3)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Rd).To(Equal(uint8(1)))
		})

		// MUL x1, x2, x3 (RV32M, funct7 = 0x01)
		It("should decode MUL x1, x2, x3", func() {
			inst := decoder.Decode(0x023100B3)

			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})

		// DIV x1, x2, x3 (RV32M)
		It("should decode DIV x1, x2, x3", func() {
			inst := decoder.Decode(0x023140B3)

			Expect(inst.Op).To(Equal(insts.OpDIV))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})
	})

	Describe("LOAD / STORE", func() {
		// LW x5, 8(x6)
		It("should decode LW x5, 8(x6)", func() {
			inst := decoder.Decode(0x00832283)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// SW x7, 12(x8)
		It("should decode SW x7, 12(x8)", func() {
			inst := decoder.Decode(0x00742623)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(uint8(8)))
			Expect(inst.Rs2).To(Equal(uint8(7)))
			Expect(inst.Imm).To(Equal(int32(12)))
		})
	})

	Describe("BRANCH", func() {
		// BEQ x1, x2, 16
		It("should decode BEQ x1, x2, 16", func() {
			inst := decoder.Decode(0x00208863)

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(16)))
		})
	})

	Describe("JAL / JALR", func() {
		// JAL x1, 4096
		It("should decode JAL x1, 4096", func() {
			inst := decoder.Decode(0x000010EF)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(4096)))
		})

		// JALR x0, 0(x1) -- canonical RET encoding
		It("should decode JALR x0, 0(x1)", func() {
			inst := decoder.Decode(0x00008067)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(0)))
		})
	})

	Describe("LUI / AUIPC", func() {
		// LUI x5, 0x12345
		It("should decode LUI x5, 0x12345", func() {
			inst := decoder.Decode(0x123452B7)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Format).To(Equal(insts.FormatU))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(int32(0x12345000)))
		})
	})

	Describe("SYSTEM", func() {
		It("should decode ECALL", func() {
			inst := decoder.Decode(0x00000073)
			Expect(inst.Op).To(Equal(insts.OpECALL))
		})

		It("should decode EBREAK", func() {
			inst := decoder.Decode(0x00100073)
			Expect(inst.Op).To(Equal(insts.OpEBREAK))
		})

		It("should decode CSRRW x1, 0x001, x2", func() {
			inst := decoder.Decode(0x001110F3)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(0x001)))
		})
	})

	Describe("FENCE", func() {
		It("should decode FENCE as a no-op", func() {
			inst := decoder.Decode(0x0000000F)
			Expect(inst.Op).To(Equal(insts.OpFENCE))
		})
	})

	Describe("Unknown instructions", func() {
		It("should mark unrecognized opcodes as unknown", func() {
			inst := decoder.Decode(0x00000001)
			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})
})

var _ = Describe("Disassemble", func() {
	It("should recognize NOP as the ADDI x0, x0, 0 pseudo-op", func() {
		decoder := insts.NewDecoder()
		inst := decoder.Decode(0x00000013)
		Expect(insts.Disassemble(inst)).To(Equal("nop"))
	})

	It("should recognize RET as the JALR x0, 0(x1) pseudo-op", func() {
		decoder := insts.NewDecoder()
		inst := decoder.Decode(0x00008067)
		Expect(insts.Disassemble(inst)).To(Equal("ret"))
	})

	It("should recognize MV as the ADDI rd, rs1, 0 pseudo-op", func() {
		decoder := insts.NewDecoder()
		// ADDI x5, x6, 0
		inst := decoder.Decode(0x00030293)
		Expect(insts.Disassemble(inst)).To(Equal("mv x5, x6"))
	})

	It("should recognize NOT as the XORI rd, rs1, -1 pseudo-op", func() {
		decoder := insts.NewDecoder()
		// XORI x5, x6, -1
		inst := decoder.Decode(0xFFF34293)
		Expect(insts.Disassemble(inst)).To(Equal("not x5, x6"))
	})

	It("should recognize BEQZ as the BEQ rs1, x0 pseudo-op", func() {
		decoder := insts.NewDecoder()
		// BEQ x5, x0, 16
		inst := decoder.Decode(0x00028863)
		Expect(insts.Disassemble(inst)).To(Equal("beqz x5, 16"))
	})

	It("should recognize BNEZ as the BNE rs1, x0 pseudo-op", func() {
		decoder := insts.NewDecoder()
		// BNE x5, x0, 16
		inst := decoder.Decode(0x00029863)
		Expect(insts.Disassemble(inst)).To(Equal("bnez x5, 16"))
	})
})
