// Package main is the entry point for the mediabunny application.
package main

import (
	"os"

	"github.com/mediabunnygo/mediabunny/cmd/mediabunny/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
