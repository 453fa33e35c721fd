package main

import (
	"os"
	_ "time/tzdata"

	"GapSentinel/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
