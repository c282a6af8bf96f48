// Command percoresim runs per-core workloads on a simulated multi-core
// machine and watches the trace output of real boards.
//
// Usage:
//
//	percoresim run [-o report.yaml] [-trace] [-pin] scenario.yaml
//	percoresim monitor -port /dev/ttyACM0 [-baud 115200]
//	percoresim ports
//
// Output lines have the form "core=N key=value ..." and are colored by core,
// both for simulated runs and for boards running the counter example.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
)

const version = "0.1.0"

// errUsage is returned by commands called with bad arguments. The command has
// already printed its usage.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	stdout := colorable.NewColorableStdout()
	stderr := colorable.NewColorableStderr()

	var err error
	switch command := os.Args[1]; command {
	case "run":
		err = runCommand(os.Args[2:], stdout, stderr)
	case "monitor":
		err = monitorCommand(os.Args[2:], stdout, stderr)
	case "ports":
		err = portsCommand(stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "percoresim version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		os.Exit(1)
	}
	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `percoresim - per-core state simulator

USAGE:
    percoresim <command> [arguments]

COMMANDS:
    run        Run a scenario on a simulated machine
    monitor    Show per-core trace output of a board over a serial port
    ports      List serial ports
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Run a scenario and append the report to a shared file
    percoresim run -o reports.yaml scenarios/counters.yaml

    # Show every simulated interrupt
    percoresim run -trace scenarios/counters.yaml

    # Watch a board running examples/counter
    percoresim monitor -port /dev/ttyACM0
`)
}
