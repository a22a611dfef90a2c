package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		if err := run(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "analyze":
		if err := analyze(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("pnsim version 0.1.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pnsim - hybrid Petri net simulation kernel

Usage:
  pnsim <command> [options]

Commands:
  run       Run a simulation from a run config and export recorded series
  analyze   Compute species/reaction metrics and invariant report from a run
  help      Show this help message
  version   Show version information

Examples:
  # Run a built-in demo net and export CSV
  pnsim run --config run.yaml --out results.csv

  # Run and analyze in one pass
  pnsim run --config run.yaml --out results.csv --analyze

For command-specific help, run:
  pnsim <command> --help`)
}
