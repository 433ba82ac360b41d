package main

import (
	"os"

	"github.com/Allreality/my-twin/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
