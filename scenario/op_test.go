package scenario

import (
	"strings"
	"testing"
)

func TestParseOp(t *testing.T) {
	tests := []struct {
		line string
		want Op
	}{
		{"inc", Op{Kind: OpInc, N: 1, Core: Self}},
		{"inc 5", Op{Kind: OpInc, N: 5, Core: Self}},
		{"shared '7'", Op{Kind: OpShared, N: 7, Core: Self}},
		{"raise 3", Op{Kind: OpRaise, N: 1, IRQ: 3, Core: Self}},
		{"raise 3 1", Op{Kind: OpRaise, N: 1, IRQ: 3, Core: 1}},
		{"  poll  ", Op{Kind: OpPoll, N: 1, Core: Self}},
		{"nest 4", Op{Kind: OpNest, N: 4, Core: Self}},
		{"panic", Op{Kind: OpPanic, N: 1, Core: Self}},
		{"reenter", Op{Kind: OpReenter, N: 1, Core: Self}},
	}
	for _, tt := range tests {
		got, err := ParseOp(tt.line)
		if err != nil {
			t.Errorf("ParseOp(%q): %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOp(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseOpErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", "empty operation"},
		{"jump", `unknown operation "jump"`},
		{"inc x", `argument "x" is not a number`},
		{"inc -1", "negative"},
		{"inc 1 2", "at most one argument"},
		{"raise", "interrupt line"},
		{"nest", "depth of at least 1"},
		{"nest 0", "depth of at least 1"},
		{"poll 1", "poll takes no arguments"},
		{`inc "1`, "EOF"},
	}
	for _, tt := range tests {
		_, err := ParseOp(tt.line)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("ParseOp(%q) error = %v, want one containing %q", tt.line, err, tt.want)
		}
	}
}
