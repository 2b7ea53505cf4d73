package main

import (
	"os"

	"github.com/triagehq/labelbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
