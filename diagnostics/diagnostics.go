// Package diagnostics formats scenario and simulator errors and prints them in
// a consistent way.
package diagnostics

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"tinygo.org/x/percore/scenario"
	"tinygo.org/x/percore/sim"
)

// A single diagnostic.
type Diagnostic struct {
	Pos token.Position
	Msg string

	// Location inside the scenario document, like "programs.0[2]", if known.
	Path string

	// Core the problem occurred on, or -1.
	Core int
}

// One or multiple errors of a particular scenario file.
// It can also represent run errors that can't easily be connected to a single
// file.
type FileDiagnostic struct {
	Filename    string
	Diagnostics []Diagnostic
}

// Diagnostics of a whole run. This can include errors belonging to multiple
// files, or just a single file.
type RunDiagnostic []FileDiagnostic

// CreateDiagnostics reads the underlying errors in the error object and creates
// a set of diagnostics that's sorted and can be readily printed.
func CreateDiagnostics(err error) RunDiagnostic {
	if err == nil {
		return nil
	}
	var runDiag RunDiagnostic
	var rest []error
	for _, err := range split(err) {
		var errs scenario.Errors
		if errors.As(err, &errs) {
			runDiag = append(runDiag, createFileDiagnostic(errs.Filename, errs.Errs))
			continue
		}
		rest = append(rest, err)
	}
	if len(rest) != 0 {
		runDiag = append(runDiag, createFileDiagnostic("", rest))
	}
	return runDiag
}

// split flattens errors joined with errors.Join, as returned by sim.Machine.Run.
// Scenario errors also unwrap to a list but are kept whole.
func split(err error) []error {
	if _, ok := err.(scenario.Errors); ok {
		return []error{err}
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var errs []error
	for _, err := range joined.Unwrap() {
		errs = append(errs, split(err)...)
	}
	return errs
}

// Create diagnostics for a single file (though, in practice, it may also be
// used for whole-run diagnostics in some cases).
func createFileDiagnostic(filename string, errs []error) FileDiagnostic {
	fileDiag := FileDiagnostic{Filename: filename}
	for _, err := range errs {
		fileDiag.Diagnostics = append(fileDiag.Diagnostics, createDiagnostics(err)...)
	}

	// Sort these diagnostics by file/line/column, then by core.
	sort.SliceStable(fileDiag.Diagnostics, func(i, j int) bool {
		posI := fileDiag.Diagnostics[i].Pos
		posJ := fileDiag.Diagnostics[j].Pos
		if posI.Filename != posJ.Filename {
			return posI.Filename < posJ.Filename
		}
		if posI.Line != posJ.Line {
			return posI.Line < posJ.Line
		}
		if posI.Column != posJ.Column {
			return posI.Column < posJ.Column
		}
		return fileDiag.Diagnostics[i].Core < fileDiag.Diagnostics[j].Core
	})

	return fileDiag
}

// Extract diagnostics from the given error message and return them as a slice
// of errors (which in many cases will just be a single diagnostic).
func createDiagnostics(err error) []Diagnostic {
	switch err := err.(type) {
	case scenario.Error:
		return []Diagnostic{
			{
				Pos:  err.Pos,
				Path: err.Path,
				Msg:  err.Msg,
				Core: -1,
			},
		}
	case *sim.CoreError:
		return []Diagnostic{
			{Msg: fmt.Sprintf("panic: %v", err.Value), Core: err.Core},
		}
	case scanner.Error:
		return []Diagnostic{
			{
				Pos:  err.Pos,
				Msg:  err.Msg,
				Core: -1,
			},
		}
	case scanner.ErrorList:
		var diags []Diagnostic
		for _, err := range err {
			diags = append(diags, createDiagnostics(*err)...)
		}
		return diags
	default:
		var coreErr *sim.CoreError
		if errors.As(err, &coreErr) {
			return createDiagnostics(coreErr)
		}
		return []Diagnostic{
			{Msg: err.Error(), Core: -1},
		}
	}
}

// Write run diagnostics to the given writer with 'wd' as the relative
// working directory.
func (runDiag RunDiagnostic) WriteTo(w io.Writer, wd string) {
	for _, fileDiag := range runDiag {
		fileDiag.WriteTo(w, wd)
	}
}

// Write file diagnostics to the given writer with 'wd' as the relative
// working directory.
func (fileDiag FileDiagnostic) WriteTo(w io.Writer, wd string) {
	if fileDiag.Filename != "" {
		fmt.Fprintln(w, "#", RelativePosition(token.Position{Filename: fileDiag.Filename}, wd).Filename)
	}
	for _, diag := range fileDiag.Diagnostics {
		diag.WriteTo(w, wd)
	}
}

// Write this diagnostic to the given writer with 'wd' as the relative working
// directory.
func (diag Diagnostic) WriteTo(w io.Writer, wd string) {
	var prefix strings.Builder
	if diag.Pos != (token.Position{}) {
		prefix.WriteString(RelativePosition(diag.Pos, wd).String())
		prefix.WriteString(": ")
	}
	if diag.Core >= 0 {
		fmt.Fprintf(&prefix, "core %d: ", diag.Core)
	}
	if diag.Path != "" {
		prefix.WriteString(diag.Path)
		prefix.WriteString(": ")
	}
	fmt.Fprintf(w, "%s%s\n", prefix.String(), diag.Msg)
}

// Convert the position in pos (assumed to have an absolute path) into a
// relative path if possible. Paths outside the working directory remain
// absolute.
func RelativePosition(pos token.Position, wd string) token.Position {
	// Check whether we even have a working directory.
	if wd == "" || !filepath.IsAbs(pos.Filename) {
		return pos
	}

	// Make the path relative, for easier reading. Ignore any errors in the
	// process (falling back to the absolute path).
	relpath, err := filepath.Rel(wd, pos.Filename)
	if err == nil && !strings.HasPrefix(relpath, "..") {
		pos.Filename = relpath
	}
	return pos
}
