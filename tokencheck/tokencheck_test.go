package tokencheck_test

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"

	"tinygo.org/x/percore/tokencheck"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), tokencheck.Analyzer, "a", "tinygo.org/x/percore")
}
