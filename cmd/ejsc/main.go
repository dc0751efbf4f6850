package main

import (
	"os"

	"github.com/ejscript/ejsc/cmd/ejsc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
