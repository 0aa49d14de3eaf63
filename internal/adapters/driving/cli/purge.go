package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove documents the source no longer lists",
	Long: `Lists stored documents that the source no longer exposes and, after
confirmation, deletes them from every store. Entities left without any
source reference are removed with them.`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	lock, err := acquireSyncLock(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	candidates, err := syncService.DeletionCandidates(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing deletion candidates: %w", err)
	}
	if len(candidates) == 0 {
		cmd.Println("No deletion candidates.")
		return nil
	}

	cmd.Printf("%d document(s) are no longer in the source:\n", len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		cmd.Printf("  %s  %q  (%d chunks, %d references)\n", c.DocumentID, c.Title, c.ChunkCount, c.ReferenceCount)
		ids = append(ids, c.DocumentID)
	}

	if !purgeYes && !confirm(cmd, "Delete them from every store?") {
		cmd.Println("Aborted.")
		return nil
	}

	if err := syncService.Purge(cmd.Context(), ids); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	cmd.Println(success(cmd.OutOrStdout(), fmt.Sprintf("Purged %d document(s).", len(ids))))
	return nil
}
