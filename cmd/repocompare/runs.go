package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/repocompare/internal/db"
	"github.com/jonathan/repocompare/internal/observability"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List runs mirrored to PostgreSQL",
	Long:  "Lists the most recent mirrored runs, or with --session shows one run with its artifacts and latest checkpoint.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbURL := runsDatabaseURL
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			return errors.New("DATABASE_URL environment variable or --db-url flag is required")
		}
		ctx := cmd.Context()
		database, err := db.Connect(ctx, dbURL)
		if err != nil {
			return err
		}
		defer database.Close()
		return listRuns(ctx, cmd.OutOrStdout(), database, runsSession, runsLimit)
	},
}

var (
	runsDatabaseURL string
	runsSession     string
	runsLimit       int
)

func init() {
	runsCommand.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	runsCommand.Flags().StringVar(&runsSession, "session", "", "Show a single session")
	runsCommand.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")

	rootCmd.AddCommand(runsCommand)
}

// runReader is the subset of db.DB the runs command reads.
type runReader interface {
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	GetRunBySession(ctx context.Context, sessionID string) (*db.Run, error)
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]db.ArtifactSummary, error)
	LatestCheckpoint(ctx context.Context, runID uuid.UUID) (*db.Checkpoint, error)
}

//nolint:errcheck
func listRuns(ctx context.Context, out io.Writer, runs runReader, sessionID string, limit int) error {
	printer := observability.NewPrinter(out)
	if sessionID == "" {
		list, err := runs.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			printer.Info("No mirrored runs.")
			return nil
		}
		for _, r := range list {
			fmt.Fprintf(out, "%-38s %-10s %-12s %s\n", r.SessionID, r.Status, outcomeOf(r.Outcome), r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	run, err := runs.GetRunBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no mirrored run for session %s", sessionID)
	}
	fmt.Fprintf(out, "Session:  %s\n", run.SessionID)
	fmt.Fprintf(out, "Source:   %s\n", run.SourcePath)
	fmt.Fprintf(out, "Target:   %s\n", run.TargetPath)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Outcome:  %s\n", outcomeOf(run.Outcome))

	artifacts, err := runs.ListArtifacts(ctx, run.ID)
	if err != nil {
		return err
	}
	steps := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		steps = append(steps, a.Step)
	}
	if len(steps) > 0 {
		fmt.Fprintf(out, "Artifacts: %s\n", strings.Join(steps, ", "))
	}

	cp, err := runs.LatestCheckpoint(ctx, run.ID)
	if err != nil {
		return err
	}
	if cp != nil {
		fmt.Fprintf(out, "Checkpoint: %s, iteration %d, at %s\n", cp.Stage, cp.Iteration, cp.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func outcomeOf(outcome *string) string {
	if outcome == nil || *outcome == "" {
		return "-"
	}
	return *outcome
}
