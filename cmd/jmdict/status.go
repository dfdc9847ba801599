package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"jmdict/pkg/lock"
	"jmdict/pkg/pipeline"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which of today's files exist",
	Long: `Show today's date key, whether the raw and JSON files for it exist,
whether a run currently holds the lock, and how many files the output
directory contains.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, store, console, err := setup(globalFlags())
	if err != nil {
		return err
	}

	dateKey := pipeline.DateKey(time.Now())
	console.PrintInfo("Date key", dateKey)
	console.PrintInfo("Raw file", presence(store.Exists(store.RawPath(dateKey)), store.RawPath(dateKey)))
	console.PrintInfo("Output file", presence(store.Exists(store.OutputPath(dateKey)), store.OutputPath(dateKey)))

	holder, err := lock.NewManager(store.LockPath(dateKey), cfg.Lock.StaleAfter, log).Load()
	switch {
	case err != nil:
		console.PrintWarning("Unreadable lock file", err)
	case holder != nil:
		console.PrintInfo("Lock", fmt.Sprintf("held by pid %d on %s since %s", holder.PID, holder.Host, holder.AcquiredAt.Format(time.RFC3339)))
	default:
		console.PrintInfo("Lock", "free")
	}

	count, err := store.CountOutputs()
	if err != nil {
		return err
	}
	console.PrintInfo("Output files", fmt.Sprintf("%d", count))
	return nil
}

func presence(exists bool, path string) string {
	if exists {
		return "present (" + path + ")"
	}
	return "missing (" + path + ")"
}
