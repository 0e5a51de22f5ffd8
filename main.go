package main

import (
	"os"

	"github.com/hdt3213/minidis/servercli"
)

func main() {
	if err := servercli.Execute(); err != nil {
		os.Exit(1)
	}
}
