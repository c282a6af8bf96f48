package main

import (
	"fmt"
	"io"
)

// Escape sequences for the output of each core. Core 0 and cores above 3 use
// the default color.
func coreColor(core int) string {
	switch core {
	case 1:
		return "\x1b[32m" // green
	case 2:
		return "\x1b[33m" // yellow
	case 3:
		return "\x1b[34m" // blue
	}
	return ""
}

// printCore writes one line of output belonging to a core.
func printCore(w io.Writer, core int, line string) {
	if color := coreColor(core); color != "" {
		fmt.Fprintf(w, "%s%s\x1b[0m\n", color, line)
		return
	}
	fmt.Fprintln(w, line)
}

// coreWriter colors each line written to it by the core at the start of the
// line. It is used for the simulator trace.
type coreWriter struct {
	w io.Writer
}

func (cw coreWriter) Write(p []byte) (int, error) {
	line := string(p)
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if tl, ok := parseTraceLine(line); ok {
		printCore(cw.w, tl.Core, line)
	} else {
		fmt.Fprintln(cw.w, line)
	}
	return len(p), nil
}
