package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
		sentinel  error
	}{
		{429, true, domain.ErrRateLimited},
		{500, true, domain.ErrTransient},
		{503, true, domain.ErrTransient},
		{400, false, nil},
		{401, false, nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := StatusError("groq", tt.status, []byte(" slow down \n"))
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Contains(t, err.Error(), fmt.Sprintf("groq error (status %d): slow down", tt.status))
		})
	}
}

func TestStatusError_TruncatesBody(t *testing.T) {
	err := StatusError("openai", 400, []byte(strings.Repeat("x", 2000)))
	assert.Less(t, len(err.Error()), 600)
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestTransportError(t *testing.T) {
	err := TransportError("ollama", errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Contains(t, err.Error(), "ollama: send request: connection refused")

	assert.Equal(t, context.Canceled, TransportError("ollama", context.Canceled))
}
