package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/repocompare/internal/config"
	"github.com/jonathan/repocompare/internal/db"
	"github.com/jonathan/repocompare/internal/observability"
	"github.com/jonathan/repocompare/internal/statestore"
)

var resetCommand = &cobra.Command{
	Use:   "reset",
	Short: "Discard a session so the next run starts from scratch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbURL := resetDatabaseURL
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		return resetSession(cmd.Context(), cmd.OutOrStdout(), resetStateDir, resetSessionID, dbURL)
	},
}

var (
	resetSessionID   string
	resetStateDir    string
	resetDatabaseURL string
)

func init() {
	resetCommand.Flags().StringVar(&resetSessionID, "session", "", "Session id")
	resetCommand.Flags().StringVar(&resetStateDir, "state-dir", config.DefaultStateDir, "Directory holding session state")
	resetCommand.Flags().StringVar(&resetDatabaseURL, "db-url", "", "PostgreSQL connection URL; also deletes the mirrored run (defaults to DATABASE_URL env var)")
	_ = resetCommand.MarkFlagRequired("session")

	rootCmd.AddCommand(resetCommand)
}

func resetSession(ctx context.Context, out io.Writer, stateDir, sessionID, databaseURL string) error {
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
	if err := store.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}

	printer := observability.NewPrinter(out)
	if databaseURL != "" {
		database, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.DeleteRunBySession(ctx, sessionID); err != nil {
			return err
		}
	}
	printer.Success("Session %s reset", sessionID)
	return nil
}
