package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/repocompare/internal/config"
	"github.com/jonathan/repocompare/internal/observability"
	"github.com/jonathan/repocompare/internal/statestore"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show the saved state of a session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showStatus(cmd.Context(), cmd.OutOrStdout(), statusStateDir, statusSession, statusVerbose)
	},
}

var (
	statusSession  string
	statusStateDir string
	statusVerbose  bool
)

func init() {
	statusCommand.Flags().StringVar(&statusSession, "session", "", "Session id")
	statusCommand.Flags().StringVar(&statusStateDir, "state-dir", config.DefaultStateDir, "Directory holding session state")
	statusCommand.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "Also print findings, candidates and reviews")
	_ = statusCommand.MarkFlagRequired("session")

	rootCmd.AddCommand(statusCommand)
}

func showStatus(ctx context.Context, out io.Writer, stateDir, sessionID string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := statestore.ValidateSessionID(sessionID); err != nil {
		return err
	}
	store, err := statestore.NewFileStore(stateDir, newLogger(false))
	if err != nil {
		return err
	}
	if !store.Exists(sessionID) {
		return fmt.Errorf("no saved state for session %s in %s", sessionID, stateDir)
	}

	state := store.Load(ctx, sessionID)
	printer := observability.NewPrinter(out)
	printer.PrintStatus(state)
	if verbose {
		printer.PrintAggregate(state.Aggregate)
		printer.PrintCandidates(state.CandidateSet)
		printer.PrintVerdicts(state.ReviewResults)
	}
	return nil
}
