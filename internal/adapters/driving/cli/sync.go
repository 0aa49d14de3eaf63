package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/services"
)

// syncLockFile is created in the data directory while a sync runs.
const syncLockFile = "sync.lock"

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise documents from the source",
	Long: `Runs one synchronisation pass. Every document the source lists is compared
with the stored copy; new and changed documents are chunked, embedded and
mined for relationships, then written to every enabled store.

Documents the source no longer lists are reported as deletion candidates
and left in place. Use "notesync purge" to remove them.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	lock, err := acquireSyncLock(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	cmd.Println("Synchronising documents...")

	report, err := syncService.Sync(cmd.Context())
	if report != nil {
		text := services.FormatReport(report)
		if isTerminal(cmd.OutOrStdout()) {
			text = styleReport(text)
		}
		cmd.Println()
		cmd.Print(text)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// acquireSyncLock takes the single-run lock in dir without blocking.
func acquireSyncLock(dir string) (*flock.Flock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, syncLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is held by another process", domain.ErrSyncInProgress, lock.Path())
	}
	return lock, nil
}
