// Package main is the entry point for the edgerel CLI binary.
package main

import (
	"os"

	cli "github.com/EdgeRel/EdgeRel/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
