package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil document service returns error", func(t *testing.T) {
		ports := &Ports{Sync: &mockSyncService{}}
		server, err := NewServer(ports, "test")
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Sync:     &mockSyncService{},
			Document: &mockDocumentService{},
		}
		server, err := NewServer(ports, "test")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("missing sync service returns error", func(t *testing.T) {
		ports := &Ports{Document: &mockDocumentService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSyncService)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Sync:     &mockSyncService{},
			Document: &mockDocumentService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
