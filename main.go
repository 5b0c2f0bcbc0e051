// Package main provides the entry point for mipsim.
// mipsim is a cycle-accurate 5-stage MIPS pipeline simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mipsim - 5-stage MIPS pipeline simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: mipsim [options] <program.s>")
	fmt.Println("       mipsim -demo <name|all|list>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -step        Step interactively, printing the pipeline each cycle")
	fmt.Println("  -trace       Print the pipeline after every cycle")
	fmt.Println("  -no-hazard   Disable load-use hazard detection")
	fmt.Println("  -no-forward  Disable forwarding")
	fmt.Println("  -config      Path to configuration file (JSON or YAML)")
	fmt.Println("  -reg N=V     Initial register value (repeatable)")
	fmt.Println("  -mem A=V     Initial memory word (repeatable)")
	fmt.Println("  -json        Print results as JSON")
	fmt.Println("  -v N         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
