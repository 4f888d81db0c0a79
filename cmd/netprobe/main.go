package main

import (
	"fmt"
	"os"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	command := os.Args[1]

	switch command {
	case "run":
		os.Exit(runCommand(os.Args[2:]))
	case "connections":
		os.Exit(connectionsCommand(os.Args[2:]))
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("netprobe v%s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	usage := `netprobe - coverage-driven path validation for utility networks

Usage:
  netprobe <command> [options]

Available Commands:
  run           Sample paths until the coverage target is met, then validate them
  connections   List downstream connections between equipment connection points
  help          Show this help message
  version       Show version information

Common Flags:
  --config FILE          YAML configuration file
  --fixture FILE         Run against a YAML graph instead of PostgreSQL
  --database-url URL     PostgreSQL URL (env NETPROBE_DATABASE_URL)
  --fab N --model N --phase P --toolset T --e2e-groups 1,2
  --log-level LEVEL      debug, info, warn or error (env LOG_LEVEL)

Examples:
  netprobe run --fixture net.yaml --coverage-target 0.9 --seed 7
  netprobe run --config netprobe.yaml --metrics-addr :9090
  netprobe connections --fixture net.yaml --yaml
`
	fmt.Print(usage)
}
