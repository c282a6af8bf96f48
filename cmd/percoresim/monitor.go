package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/mattn/go-tty"
	"go.bug.st/serial"
)

// traceLine is a parsed line of per-core output, like
// "core=1 counter=42 total=80" or "core=0 raise irq=3 masked=false".
type traceLine struct {
	Core   int
	Event  string // first bare word, if any
	Fields []field
}

type field struct {
	Key, Value string
}

// Get returns the value of a field, or "" if the line doesn't have it.
func (tl traceLine) Get(key string) string {
	for _, f := range tl.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// parseTraceLine parses a line of per-core output. Lines that don't start with
// a core=N field are not trace lines.
func parseTraceLine(line string) (traceLine, bool) {
	words, err := shlex.Split(line)
	if err != nil || len(words) == 0 {
		return traceLine{}, false
	}
	value, ok := strings.CutPrefix(words[0], "core=")
	if !ok {
		return traceLine{}, false
	}
	core, err := strconv.Atoi(value)
	if err != nil || core < 0 {
		return traceLine{}, false
	}
	tl := traceLine{Core: core}
	for _, word := range words[1:] {
		key, value, ok := strings.Cut(word, "=")
		if !ok {
			if tl.Event == "" {
				tl.Event = word
			}
			continue
		}
		tl.Fields = append(tl.Fields, field{key, value})
	}
	return tl, true
}

// copyTrace copies output of a board to w, one line at a time, colored by the
// core that printed it.
func copyTrace(w io.Writer, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if tl, ok := parseTraceLine(line); ok {
			printCore(w, tl.Core, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
	return scanner.Err()
}

// monitorCommand implements 'percoresim monitor'.
func monitorCommand(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("monitor", flag.ContinueOnError)
	flags.SetOutput(stderr)
	port := flags.String("port", "", "serial port of the board")
	baud := flags.Int("baud", 115200, "baud rate")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: percoresim monitor -port PORT [-baud RATE]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *port == "" || flags.NArg() != 0 {
		flags.Usage()
		return errUsage
	}

	p, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		return fmt.Errorf("could not open %s: %w", *port, err)
	}
	defer p.Close()

	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("could not open terminal: %w", err)
	}
	defer t.Close()

	fmt.Fprintf(stderr, "Connected to %s. Press Ctrl-C to exit.\n", *port)

	errCh := make(chan error, 2)
	go func() {
		errCh <- copyTrace(stdout, p)
	}()
	go func() {
		errCh <- forwardKeys(p, t)
	}()
	err = <-errCh
	if errors.Is(err, errInterrupted) {
		return nil
	}
	return err
}

var errInterrupted = errors.New("interrupted")

type runeReader interface {
	ReadRune() (rune, error)
}

// forwardKeys sends keystrokes from the terminal to the board until Ctrl-C is
// pressed.
func forwardKeys(w io.Writer, keys runeReader) error {
	for {
		r, err := keys.ReadRune()
		if err != nil {
			return err
		}
		if r == 0x03 { // Ctrl-C
			return errInterrupted
		}
		if _, err := w.Write([]byte(string(r))); err != nil {
			return err
		}
	}
}

// portsCommand implements 'percoresim ports'.
func portsCommand(stdout io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(stdout, "No serial ports found.")
		return nil
	}
	for _, port := range ports {
		fmt.Fprintln(stdout, port)
	}
	return nil
}
