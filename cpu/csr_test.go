package cpu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32emu/cpu"
)

const (
	csrFFlags = 0x001
	csrFRM    = 0x002
	csrFCSR   = 0x003
	csrCycle  = 0xC00
	csrInstret = 0xC02
)

var _ = Describe("CSR access", func() {
	var m *cpu.Machine

	BeforeEach(func() {
		m = cpu.NewMachine()
	})

	It("reads into rd and writes from rs1 on an ordinary CSRRW", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 11, 0, 0, 5),      // addi a1, x0, 5
			encodeI(0x73, 10, 1, 11, csrFRM), // csrrw a0, frm, a1
		})
		m.LoadEntry(0x1000)
		Expect(m.Step()).To(Succeed())
		Expect(m.Step()).To(Succeed())

		Expect(m.CPU.Regs.ReadReg(10)).To(Equal(uint32(0))) // old frm was 0

		loadProgram(m, 0x1008, []uint32{
			encodeI(0x73, 12, 1, 0, csrFRM), // csrrw a2, frm, x0
		})
		Expect(m.Step()).To(Succeed())
		Expect(m.CPU.Regs.ReadReg(12)).To(Equal(uint32(5))) // the write from before stuck
	})

	It("skips the write when rs1 is x0, for both CSRRW and CSRRS", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 11, 0, 0, 3),       // addi a1, x0, 3
			encodeI(0x73, 0, 1, 11, csrFRM),  // csrrw x0, frm, a1 (sets frm = 3)
			encodeI(0x73, 0, 1, 0, csrFRM),   // csrrw x0, frm, x0 (rs1 == 0: no write)
			encodeI(0x73, 10, 2, 0, csrFRM),  // csrrs a0, frm, x0 (rs1 == 0: no write, but reads)
		})
		m.LoadEntry(0x1000)
		for i := 0; i < 4; i++ {
			Expect(m.Step()).To(Succeed())
		}
		Expect(m.CPU.Regs.ReadReg(10)).To(Equal(uint32(3)))
	})

	It("skips the read when rd is x0", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 10, 0, 0, 0xAA), // addi a0, x0, 0xAA (sentinel)
			encodeI(0x73, 0, 1, 0, csrFRM), // csrrw x0, frm, x0
		})
		m.LoadEntry(0x1000)
		Expect(m.Step()).To(Succeed())
		Expect(m.Step()).To(Succeed())
		Expect(m.CPU.Regs.ReadReg(10)).To(Equal(uint32(0xAA)))
	})

	It("ORs into the CSR on CSRRS rather than replacing it", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 11, 0, 0, 0x1), // addi a1, x0, 1
			encodeI(0x73, 0, 1, 11, csrFRM), // csrrw x0, frm, a1 (frm = 1)
			encodeI(0x13, 12, 0, 0, 0x4), // addi a2, x0, 4
			encodeI(0x73, 10, 2, 12, csrFRM), // csrrs a0, frm, a2 (frm = 1|4 = 5)
		})
		m.LoadEntry(0x1000)
		for i := 0; i < 4; i++ {
			Expect(m.Step()).To(Succeed())
		}
		Expect(m.CPU.Regs.ReadReg(10)).To(Equal(uint32(1))) // old value read before the OR lands

		loadProgram(m, 0x1010, []uint32{
			encodeI(0x73, 13, 2, 0, csrFRM), // csrrs a3, frm, x0
		})
		Expect(m.Step()).To(Succeed())
		Expect(m.CPU.Regs.ReadReg(13)).To(Equal(uint32(5)))
	})

	It("packs fflags and frm into fcsr", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 11, 0, 0, 0x1F),        // addi a1, x0, 0x1F (fflags bits)
			encodeI(0x73, 0, 1, 11, csrFFlags), // csrrw x0, fflags, a1
			encodeI(0x13, 12, 0, 0, 0x3),          // addi a2, x0, 3
			encodeI(0x73, 0, 1, 12, csrFRM),        // csrrw x0, frm, a2
			encodeI(0x73, 10, 1, 0, csrFCSR),       // csrrw a0, fcsr, x0
		})
		m.LoadEntry(0x1000)
		for i := 0; i < 5; i++ {
			Expect(m.Step()).To(Succeed())
		}
		Expect(m.CPU.Regs.ReadReg(10)).To(Equal(uint32(3<<5 | 0x1F)))
	})

	It("aliases RDCYCLE and RDINSTRET onto the same counter", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 10, 0, 0, 0), // addi a0, x0, 0 (1 retired instruction so far)
			encodeI(0x73, 11, 2, 0, csrCycle), // csrrs a1, cycle, x0
			encodeI(0x73, 12, 2, 0, csrInstret), // csrrs a2, instret, x0
		})
		m.LoadEntry(0x1000)
		Expect(m.Step()).To(Succeed())
		Expect(m.Step()).To(Succeed())
		Expect(m.Step()).To(Succeed())
		Expect(m.CPU.Regs.ReadReg(11)).To(Equal(uint32(2))) // both retired instructions counted
		Expect(m.CPU.Regs.ReadReg(12)).To(Equal(uint32(3))) // instret reads the same running count
	})

	It("traps as illegal on an unrecognized CSR address", func() {
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x73, 10, 1, 0, 0x123), // csrrw a0, 0x123 (not implemented), x0
		})
		m.LoadEntry(0x1000)
		err := m.Step()
		Expect(err).To(HaveOccurred())
		exc, ok := err.(*cpu.Exception)
		Expect(ok).To(BeTrue())
		Expect(exc.Code).To(Equal(cpu.IllegalOperation))
	})
})
