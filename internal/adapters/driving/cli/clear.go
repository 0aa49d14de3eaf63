package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all data from every configured store",
	Long: `Deletes every document, chunk, entity, relationship and source reference
from all enabled stores. The next sync rebuilds everything from the source.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	lock, err := acquireSyncLock(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if !clearYes && !confirm(cmd, "This removes all synchronised data. Continue?") {
		cmd.Println("Aborted.")
		return nil
	}

	if err := syncService.ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	cmd.Println(success(cmd.OutOrStdout(), "All stores cleared."))
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	cmd.Printf("%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		cmd.Println()
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
