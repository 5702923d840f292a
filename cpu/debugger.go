package cpu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/rv32emu/insts"
)

// Debugger drives the interactive REPL that print_and_pause enters
// when breakChecks fires. It owns no state of its own beyond the I/O
// streams: everything it manipulates (breakpoints, the step counter,
// verbosity, memory) lives on the Machine it was built against.
type Debugger struct {
	m   *Machine
	in  *bufio.Scanner
	out io.Writer
}

// NewDebugger builds a Debugger reading commands from in and writing
// prompts and output to out.
func NewDebugger(m *Machine, in io.Reader, out io.Writer) *Debugger {
	return &Debugger{m: m, in: bufio.NewScanner(in), out: out}
}

// PrintAndPause announces the breakpoint, dumps the register file, and
// loops reading REPL commands until one of them resumes execution.
func (d *Debugger) PrintAndPause() {
	pc := d.m.CPU.Regs.PC
	inst, _ := d.m.fetch()
	fmt.Fprintf(d.out, "\n>>> Breakpoint \t%#08x: %s\n\n", pc, insts.Disassemble(inst))
	fmt.Fprint(d.out, d.m.CPU.Regs.String())
	for d.executeOne() {
	}
}

// executeOne reads and runs one command line, returning true if the
// REPL should keep prompting (the command didn't resume execution).
func (d *Debugger) executeOne() bool {
	fmt.Fprint(d.out, "Enter = cont, help, quit: ")
	if !d.in.Scan() {
		return false
	}
	fields := strings.Fields(d.in.Text())
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "c", "continue":
		d.m.CPU.BreakOnSteps(0)
		return false

	case "s", "step":
		steps := 1
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil {
				steps = n
			}
		}
		fmt.Fprintf(d.out, "Pressing Enter will now execute %d steps\n", steps)
		d.m.CPU.BreakOnSteps(steps)
		return false

	case "v", "verbose":
		d.m.CPU.VerboseInstructions = !d.m.CPU.VerboseInstructions
		fmt.Fprintf(d.out, "Verbose instructions are now %s\n", onOff(d.m.CPU.VerboseInstructions))
		return true

	case "b", "break":
		addr, ok := parseHexArg(args, 0)
		if !ok {
			fmt.Fprintln(d.out, ">>> Not enough parameters: break [addr]")
			return true
		}
		d.m.CPU.Breakpoint(addr)
		return true

	case "clear":
		d.m.CPU.ClearBreakpoints()
		return true

	case "read":
		addr, ok := parseHexArg(args, 0)
		if !ok {
			fmt.Fprintln(d.out, ">>> Not enough parameters: read [addr] (length=1)")
			return true
		}
		n := 1
		if len(args) > 1 {
			if v, err := strconv.Atoi(args[1]); err == nil {
				n = v
			}
		}
		d.printMemory(addr, n)
		return true

	case "write":
		addr, ok := parseHexArg(args, 0)
		if !ok || len(args) < 2 {
			fmt.Fprintln(d.out, ">>> Not enough parameters: write [addr] [value]")
			return true
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(d.out, ">>> Not enough parameters: write [addr] [value]")
			return true
		}
		fmt.Fprintf(d.out, "%#04x -> %#02x\n", addr, value&0xFF)
		d.m.Memory.WriteU8(addr, uint8(value))
		return true

	case "debug":
		_ = d.m.TriggerDebugInterrupt()
		return true

	case "reset":
		d.m.Reset()
		d.m.CPU.BreakNow()
		return false

	case "quit", "exit":
		d.m.Stop()
		return false

	case "help", "?":
		d.printHelp()
		return true

	default:
		fmt.Fprintf(d.out, ">>> Unknown command: '%s'\n", cmd)
		d.printHelp()
		return true
	}
}

// parseHexArg parses args[i] as a base-16 address, per the REPL's
// convention that addresses (unlike counts and values) are hex.
func parseHexArg(args []string, i int) (uint32, bool) {
	if i >= len(args) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(args[i], "0x"), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func (d *Debugger) printMemory(addr uint32, n int) {
	col := 0
	for i := 0; i < n; i++ {
		if col == 0 {
			fmt.Fprintf(d.out, "%#04x: ", addr+uint32(i))
		}
		fmt.Fprintf(d.out, "%#02x ", d.m.Memory.ReadU8(addr+uint32(i)))
		col++
		if col == 4 {
			fmt.Fprintln(d.out)
			col = 0
		}
	}
	if col != 0 {
		fmt.Fprintln(d.out)
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func (d *Debugger) printHelp() {
	fmt.Fprint(d.out, helpText)
}

const helpText = `
  usage: command [options]
    commands:
      ?, help               Show this informational text
      c, continue           Continue execution, disable stepping
      s, step [steps=1]     Run [steps] instructions, then break
      v, verbose            Toggle verbose instruction execution
      b, break [addr]       Breakpoint on executing [addr]
      clear                 Clear all breakpoints
      reset                 Reset the machine
      read [addr] (len=1)   Read from [addr] (len) bytes and print
      write [addr] [value]  Write [value] to memory location [addr]
      debug                 Trigger the debug interrupt handler
      quit                  Stop the machine
`
