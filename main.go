// Package main provides the entry point for rv32emu.
// rv32emu is a user-space RV32IM RISC-V emulator.
//
// For the full CLI, use: go run ./cmd/rv32emu
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32emu - RV32IM RISC-V emulator")
	fmt.Println("")
	fmt.Println("Usage: rv32emu [options] <guest-binary>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -debug     Drop into the interactive debugger on EBREAK or a breakpoint")
	fmt.Println("  -b ADDR    Install a breakpoint at ADDR (hex); repeatable")
	fmt.Println("  -c         Enable the compressed (RVC) instruction subset")
	fmt.Println("  -a         Enable the atomic (RVA) instruction subset")
	fmt.Println("  -v         Log every retired instruction")
	fmt.Println("  -config    Load machine settings from a JSON config file")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32emu' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32emu' instead.")
	}
}
