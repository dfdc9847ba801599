package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dryRun bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove downloaded raw files",
	Long: `Remove every file from the downloads directory except .gitKeep,
README.md and active lock files.

Removing today's raw file makes the next run download it again.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files that would be removed")
}

func runClean(cmd *cobra.Command, args []string) error {
	_, log, store, console, err := setup(globalFlags())
	if err != nil {
		return err
	}

	removed, err := store.Clean(dryRun)
	if err != nil {
		return err
	}

	for _, name := range removed {
		if dryRun {
			console.PrintInfo("Would remove", name)
		} else {
			console.PrintInfo("Removed", name)
		}
	}

	log.InfoWithFields("downloads cleaned", map[string]interface{}{
		"dir":     store.DownloadsDir(),
		"files":   len(removed),
		"dry_run": dryRun,
	})
	verb := "removed"
	if dryRun {
		verb = "to remove"
	}
	console.PrintSuccess(fmt.Sprintf("%d file(s) %s", len(removed), verb))
	return nil
}
