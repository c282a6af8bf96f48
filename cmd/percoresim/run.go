package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/gofrs/flock"
	"github.com/mattn/go-colorable"
	"gopkg.in/yaml.v2"

	"tinygo.org/x/percore/diagnostics"
	"tinygo.org/x/percore/scenario"
)

// runCommand implements 'percoresim run'.
func runCommand(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(stderr)
	output := flags.String("o", "", "append the report as a YAML document to this file")
	trace := flags.Bool("trace", false, "print every simulated interrupt")
	pin := flags.Bool("pin", false, "pin each simulated core to its own host CPU")
	color := flags.Bool("color", true, "color output by core")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: percoresim run [flags] scenario.yaml")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errUsage
	}
	if !*color {
		stdout = colorable.NewNonColorable(stdout)
	}

	wd, _ := os.Getwd()
	sc, err := scenario.Load(flags.Arg(0))
	if err != nil {
		diagnostics.CreateDiagnostics(err).WriteTo(stderr, wd)
		return fmt.Errorf("could not load %s", flags.Arg(0))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := scenario.Options{Pin: *pin}
	if *trace {
		opts.Trace = coreWriter{stdout}
	}
	report, err := scenario.Execute(ctx, sc, opts)
	if err != nil {
		diagnostics.CreateDiagnostics(err).WriteTo(stderr, wd)
		return fmt.Errorf("scenario %q failed", sc.Name)
	}

	printReport(stdout, report)
	if *output != "" {
		if err := appendReport(*output, report); err != nil {
			return err
		}
	}
	return nil
}

func printReport(w io.Writer, report *scenario.Report) {
	for _, c := range report.Cores {
		printCore(w, c.Core, fmt.Sprintf("core=%d counter=%d handled=%d panics=%d borrow_violations=%d masks=%d nested=%d deferred=%d delivered=%d",
			c.Core, c.Counter, c.Handled, c.Panics, c.BorrowViolations, c.Masks, c.Nested, c.Deferred, c.Delivered))
	}
	fmt.Fprintf(w, "scenario=%q shared=%d digest=%s footprint=%s\n", report.Name, report.Shared, report.Digest, report.Footprint)
}

// appendReport adds a report to a file of YAML documents. Several runs may
// write to the same file at once, so the file is locked while writing.
func appendReport(path string, report *scenario.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("could not lock report file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
	if err != nil {
		return err
	}
	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
