// Package main provides the repocompare command line: a resumable, chunked comparison of two
// repositories that proposes improvements for the target and refines them with human feedback.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repocompare",
	Short: "Compare two repositories and propose improvements for the target",
	Long: `repocompare splits a source and a target repository into aligned chunks, analyzes every pair with a
language model, turns the merged findings into improvement candidates, has them reviewed, and lets you
approve, refine, filter or refocus them. Progress is saved after every step so an interrupted run resumes
where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
