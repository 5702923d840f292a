package cpu_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32emu/cpu"
)

var _ = Describe("Debugger", func() {
	var (
		stdout *bytes.Buffer
		stdin  *bytes.Buffer
		m      *cpu.Machine
	)

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
		stdin = &bytes.Buffer{}
	})

	newMachine := func() *cpu.Machine {
		return cpu.NewMachine(cpu.WithDebugger(stdin, stdout))
	}

	It("prints help, toggles verbose, dumps memory, then steps and continues", func() {
		// Five addi a0, a0, 1 in a row at 0x1000, 0x1004, ...; a
		// breakpoint on the second instruction fires the first pause.
		m = newMachine()
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 10, 0, 10, 1),
			encodeI(0x13, 10, 0, 10, 1),
			encodeI(0x13, 10, 0, 10, 1),
			encodeI(0x13, 10, 0, 10, 1),
			encodeI(0x13, 10, 0, 10, 1),
		})
		m.LoadEntry(0x1000)
		m.CPU.Breakpoint(0x1004)

		stdin.WriteString(strings.Join([]string{
			"help",    // at first pause: print help, stay paused
			"v",       // toggle verbose on, stay paused
			"read 0x1000 4", // dump the first instruction's bytes, stay paused
			"s 2",     // arm a 2-step budget, resume; next pause is step-budget expiry
			"v",       // toggle verbose back off, stay paused
			"c",       // resume for good
			"c",       // extra continues in case more breakpoints are hit
			"c",
			"c",
		}, "\n") + "\n")

		err := m.Simulate(context.Background())
		// The program runs off the end into zero-filled memory once the
		// final addi retires, which decodes as an unknown instruction
		// with no installed handler and stops the machine.
		Expect(err).To(HaveOccurred())

		out := stdout.String()
		Expect(out).To(ContainSubstring("usage: command [options]"))
		Expect(out).To(ContainSubstring("Verbose instructions are now ON"))
		Expect(out).To(ContainSubstring("Verbose instructions are now OFF"))
		Expect(out).To(ContainSubstring("0x1000:"))
		Expect(out).To(ContainSubstring("Pressing Enter will now execute 2 steps"))
		// The banner prints on every pause regardless of cause: once
		// for the breakpoint hit, once when the armed step budget
		// expires.
		Expect(strings.Count(out, ">>> Breakpoint")).To(Equal(2))
	})

	It("writes a byte through the write command", func() {
		m = newMachine()
		// Pausing happens only after an instruction retires and lands
		// on a breakpointed PC, so the breakpoint sits one instruction
		// past entry.
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 10, 0, 0, 0), // addi a0, x0, 0
			encodeI(0x13, 11, 0, 0, 0), // addi a1, x0, 0 (at the bp)
		})
		m.LoadEntry(0x1000)
		m.CPU.Breakpoint(0x1004)

		stdin.WriteString("write 0x2000 65\nc\nc\n")

		err := m.Simulate(context.Background())
		Expect(err).To(HaveOccurred())

		Expect(m.Memory.ReadU8(0x2000)).To(Equal(uint8(65)))
	})

	It("reports an unknown command and reprints help", func() {
		m = newMachine()
		loadProgram(m, 0x1000, []uint32{
			encodeI(0x13, 10, 0, 0, 0),
			encodeI(0x13, 11, 0, 0, 0),
		})
		m.LoadEntry(0x1000)
		m.CPU.Breakpoint(0x1004)

		stdin.WriteString("bogus\nc\nc\n")

		err := m.Simulate(context.Background())
		Expect(err).To(HaveOccurred())

		Expect(stdout.String()).To(ContainSubstring(">>> Unknown command: 'bogus'"))
	})
})
