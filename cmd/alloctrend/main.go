package main

import (
	"os"

	"github.com/rustyeddy/alloctrend/cmd/alloctrend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
