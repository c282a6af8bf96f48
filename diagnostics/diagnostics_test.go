package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"testing"

	"tinygo.org/x/percore/scenario"
	"tinygo.org/x/percore/sim"
)

func TestScenarioErrors(t *testing.T) {
	_, err := scenario.Parse([]byte("cores: 2\nprograms:\n  all: [jump, \"raise 3\"]\n  \"0\": [\"inc x\"]\n"), "/work/s.yaml")
	if err == nil {
		t.Fatal("invalid scenario was accepted")
	}
	diags := CreateDiagnostics(err)
	if len(diags) != 1 || diags[0].Filename != "/work/s.yaml" {
		t.Fatalf("got %+v, want diagnostics for one file", diags)
	}

	buf := &bytes.Buffer{}
	diags.WriteTo(buf, "/work")
	want := `# s.yaml
s.yaml: programs.all[0]: unknown operation "jump"
s.yaml: programs.all[1]: no handler for interrupt line 3
s.yaml: programs.0[0]: inc: argument "x" is not a number
`
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestYAMLErrorsSorted(t *testing.T) {
	_, err := scenario.Parse([]byte("cores: x\nname: [1]\niterations: 2\nfoo: 1\n"), "s.yaml")
	diags := CreateDiagnostics(err)
	if len(diags) != 1 {
		t.Fatalf("got %d files, want 1", len(diags))
	}
	var lines []int
	for _, diag := range diags[0].Diagnostics {
		lines = append(lines, diag.Pos.Line)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			t.Errorf("diagnostics not sorted by line: %v", lines)
		}
	}
}

func TestRunErrors(t *testing.T) {
	err := errors.Join(
		&sim.CoreError{Core: 1, Value: "percore: already borrowed"},
		nil,
		fmt.Errorf("core 0: %w", scenario.ErrMaskLeaked),
	)
	buf := &bytes.Buffer{}
	CreateDiagnostics(err).WriteTo(buf, "")
	want := "core 0: scenario: exceptions still masked after a recovered panic\n" +
		"core 1: panic: percore: already borrowed\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWrappedCoreError(t *testing.T) {
	err := fmt.Errorf("run: %w", &sim.CoreError{Core: 3, Value: 42})
	diags := CreateDiagnostics(err)
	if len(diags) != 1 || len(diags[0].Diagnostics) != 1 {
		t.Fatalf("got %+v", diags)
	}
	if diag := diags[0].Diagnostics[0]; diag.Core != 3 || diag.Msg != "panic: 42" {
		t.Errorf("got %+v", diag)
	}
}

func TestRelativePosition(t *testing.T) {
	wd := filepath.FromSlash("/home/user/project")
	tests := []struct {
		filename string
		want     string
	}{
		{"/home/user/project/scenarios/a.yaml", "scenarios/a.yaml"},
		{"/etc/a.yaml", "/etc/a.yaml"},
		{"a.yaml", "a.yaml"},
	}
	for _, tt := range tests {
		pos := RelativePosition(token.Position{Filename: filepath.FromSlash(tt.filename), Line: 1}, wd)
		if pos.Filename != filepath.FromSlash(tt.want) {
			t.Errorf("RelativePosition(%s) = %s, want %s", tt.filename, pos.Filename, tt.want)
		}
	}
	if pos := RelativePosition(token.Position{Filename: "/x/a.yaml"}, ""); pos.Filename != "/x/a.yaml" {
		t.Errorf("no working directory: got %s", pos.Filename)
	}
}
