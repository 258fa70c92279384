// Package main is the entry point of the metplus CLI.
package main

import (
	"github.com/huangsam/metplus/cmd"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/history"
)

func main() {
	defer history.CloseHistory()
	if err := cmd.Execute(); err != nil {
		// LogFatal exits, so deferred calls do not run
		history.CloseHistory()
		contract.LogFatal("metplus", err)
	}
}
