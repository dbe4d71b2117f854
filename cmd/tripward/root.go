package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tripward",
	Short: "Tripward - policy-as-code engine for trip approval with audit snapshots",
	Long: `Tripward evaluates trip plans against declarative policy rules and keeps a
tamper-evident, hash-chained audit trail of every validation run.

It provides:
  - Configurable rule evaluation with blocking/advisory severity semantics
  - Deterministic content-hashed policy versions
  - Hash-chained, write-once validation snapshots per trip
  - Migration planning and shadow-mode simulation for policy changes`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
