package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"sync", "clear", "purge", "document", "export", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_BuilderWiresServices(t *testing.T) {
	oldSync, oldDoc, oldDir, oldBuilder, oldClose := syncService, documentService, dataDir, builder, closeServices
	defer func() {
		syncService, documentService, dataDir, builder, closeServices = oldSync, oldDoc, oldDir, oldBuilder, oldClose
		configPath = ""
	}()
	syncService, documentService = nil, nil

	var gotOpts Options
	docs := testDocuments()
	builder = func(_ context.Context, opts Options) (*Services, error) {
		gotOpts = opts
		return &Services{Sync: &mockSyncService{}, Document: docs, DataDir: t.TempDir()}, nil
	}

	out, err := execute(t, "", "--config", "/tmp/notesync.toml", "document", "list")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/notesync.toml", gotOpts.ConfigPath)
	assert.Contains(t, out, "Test Document 1")
	assert.NotEmpty(t, dataDir)
}

func TestRootCmd_BuilderError(t *testing.T) {
	oldSync, oldDoc, oldBuilder := syncService, documentService, builder
	defer func() {
		syncService, documentService, builder = oldSync, oldDoc, oldBuilder
	}()
	syncService, documentService = nil, nil
	builder = func(context.Context, Options) (*Services, error) {
		return nil, errors.New("config missing")
	}

	_, err := execute(t, "", "document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising: config missing")
}

func TestRootCmd_VersionSkipsBuilder(t *testing.T) {
	oldSync, oldDoc, oldBuilder := syncService, documentService, builder
	defer func() {
		syncService, documentService, builder = oldSync, oldDoc, oldBuilder
	}()
	syncService, documentService = nil, nil
	builder = func(context.Context, Options) (*Services, error) {
		t.Fatal("builder must not run for version")
		return nil, nil
	}

	out, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "notesync version")
}

func TestRootCmd_RejectsUnknownLogFormat(t *testing.T) {
	setupTestServices(t)
	defer func() { logFormat = "text" }()

	_, err := execute(t, "", "--log-format", "xml", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}
