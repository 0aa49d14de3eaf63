// Package cli implements the notesync command line.
//
// Commands reach the core through the driving ports held in package
// variables. The binary installs a Builder that wires them from the
// configuration file; tests assign mocks directly.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Options carries the global flags a Builder needs.
type Options struct {
	ConfigPath string
}

// Services is the wired application handed to the commands.
type Services struct {
	Sync     driving.SyncService
	Document driving.DocumentService

	// DataDir holds the sync lock.
	DataDir string

	// Close releases stores and clients. May be nil.
	Close func() error
}

// Builder wires Services from the global options.
type Builder func(ctx context.Context, opts Options) (*Services, error)

var (
	syncService     driving.SyncService
	documentService driving.DocumentService
	dataDir         string
	closeServices   func() error

	builder Builder
	version = "dev"
)

// Global flags.
var (
	configPath string
	verbose    bool
	logFormat  string
)

// skipServices marks commands that run without a configuration.
const skipServices = "notesync/skip-services"

var rootCmd = &cobra.Command{
	Use:   "notesync",
	Short: "Synchronise notes into a chunked knowledge store",
	Long: `notesync reads documents from a source (a Notion workspace or a markdown
directory), splits them into semantic chunks with a language model, extracts
subject/relationship/object triples and writes everything into the configured
stores. Only documents that changed since the last run are processed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.notesync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatText), "log format: text or json")
}

// Execute runs the command line with the given version and Builder.
// Interrupts cancel the running command's context.
func Execute(v string, b Builder) error {
	if v != "" {
		version = v
	}
	builder = b

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("closing services: %v", cerr)
		}
		closeServices = nil
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if err := logger.SetFormat(logger.Format(logFormat)); err != nil {
		return err
	}

	if cmd.Annotations[skipServices] == "true" {
		return nil
	}
	if syncService != nil || documentService != nil || builder == nil {
		return nil
	}

	svc, err := builder(cmd.Context(), Options{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	if svc == nil {
		return errors.New("initialising: builder returned no services")
	}
	syncService = svc.Sync
	documentService = svc.Document
	dataDir = svc.DataDir
	closeServices = svc.Close
	return nil
}
