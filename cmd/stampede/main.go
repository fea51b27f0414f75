package main

import (
	"os"

	"github.com/wrussell84/stampede/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
