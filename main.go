// Package main is the entry point for the peeracct traffic accounting agent.
package main

import (
	"os"

	"firestige.xyz/peeracct/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
