// Package httpapi classifies failures of the HTTP model APIs.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// maxBody bounds how much of an error body ends up in a message.
const maxBody = 512

// StatusError describes a non-200 response.
// 429 wraps domain.ErrRateLimited and 5xx wraps domain.ErrTransient so the caller retries them.
func StatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s error (status %d): %s", domain.ErrRateLimited, provider, status, msg)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s error (status %d): %s", domain.ErrTransient, provider, status, msg)
	default:
		return fmt.Errorf("%s error (status %d): %s", provider, status, msg)
	}
}

// TransportError wraps a failed round trip. Network failures are transient;
// cancellation is returned as is.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: send request: %w", domain.ErrTransient, provider, err)
}
