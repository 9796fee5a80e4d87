// Package main provides the Helio MDO Framework CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - will be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "helio",
		Short: "Helio distributed vector and data transfer tooling",
		Long: `Helio is the distributed-vector and data-transfer layer of an MDO
framework: flattened variable buffers, cross-rank scatters for value
propagation, and indexed accumulation for adjoint propagation.`,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("helio %s (%s)\n", Version, GitCommit)
	},
}
