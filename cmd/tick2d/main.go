package main

import (
	"os"

	"github.com/plus3/tick2d/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
