package main

import (
	"os"

	"github.com/flowgrid-io/flowgrid/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
