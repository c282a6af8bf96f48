// Command tokencheck reports percore.Token values that escape the masked
// region they were minted for.
//
// Usage:
//
//	tokencheck ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"tinygo.org/x/percore/tokencheck"
)

func main() {
	singlechecker.Main(tokencheck.Analyzer)
}
