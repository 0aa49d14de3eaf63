// Package notion provides a document source over the pages shared with a
// Notion integration.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.DocumentSource = (*Connector)(nil)

// Config holds configuration for the Notion connector.
type Config struct {
	// Token is the integration token (required).
	Token string

	// RequestsPerSecond paces API calls (default: 3).
	RequestsPerSecond float64

	// Transport is the base HTTP transport (default: http.DefaultTransport).
	Transport http.RoundTripper
}

// Connector lists Notion pages and renders their blocks to markdown.
type Connector struct {
	api     api
	limiter *RateLimiter

	mu     sync.Mutex
	titles map[string]string
}

// Option configures the Connector.
type Option func(*Connector)

// WithRateLimitObserver reports every 429 backoff, for sync statistics.
func WithRateLimitObserver(fn func(time.Duration)) Option {
	return func(c *Connector) { c.limiter.setObserver(fn) }
}

// New creates a Notion connector.
func New(cfg Config, opts ...Option) (*Connector, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: notion: token is required", domain.ErrConfiguration)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = domain.DefaultNotionRPS
	}

	limiter := NewRateLimiter(cfg.RequestsPerSecond)
	return newConnector(newClient(cfg.Token, limiter, cfg.Transport), limiter, opts...), nil
}

func newConnector(a api, limiter *RateLimiter, opts ...Option) *Connector {
	c := &Connector{
		api:     a,
		limiter: limiter,
		titles:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeNotion
}

// ListDocuments returns every non-archived page, oldest edit first.
func (c *Connector) ListDocuments(ctx context.Context) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	var cursor notionapi.Cursor

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.api.SearchPages(ctx, cursor)
		if err != nil {
			return nil, classify("search pages", err)
		}

		for _, obj := range resp.Results {
			page := asPage(obj)
			if page == nil || page.Archived {
				continue
			}
			id := string(page.ID)
			c.rememberTitle(id, pageTitle(page))
			refs = append(refs, domain.DocumentRef{
				ID:             id,
				LastEditedTime: formatTime(page.LastEditedTime),
			})
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	logger.Debug("notion: listed %d pages", len(refs))
	return refs, nil
}

// FetchDocument renders a page's blocks to markdown.
func (c *Connector) FetchDocument(ctx context.Context, ref domain.DocumentRef) (*domain.SourceDocument, error) {
	title, lastEdited, err := c.pageInfo(ctx, ref)
	if err != nil {
		return nil, err
	}

	var blocks []notionapi.Block
	var cursor notionapi.Cursor
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.api.GetChildren(ctx, ref.ID, cursor)
		if err != nil {
			return nil, classify("get blocks "+ref.ID, err)
		}
		blocks = append(blocks, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return &domain.SourceDocument{
		ID:             ref.ID,
		Title:          title,
		Markdown:       renderBlocks(ref.ID, blocks),
		LastEditedTime: lastEdited,
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// pageInfo returns the title seen when listing, fetching the page when the
// listing did not include it.
func (c *Connector) pageInfo(ctx context.Context, ref domain.DocumentRef) (title, lastEdited string, err error) {
	c.mu.Lock()
	title, ok := c.titles[ref.ID]
	c.mu.Unlock()
	if ok && ref.LastEditedTime != "" {
		return title, ref.LastEditedTime, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", err
	}
	page, err := c.api.GetPage(ctx, ref.ID)
	if err != nil {
		return "", "", classify("get page "+ref.ID, err)
	}
	title = pageTitle(page)
	c.rememberTitle(ref.ID, title)

	lastEdited = ref.LastEditedTime
	if lastEdited == "" {
		lastEdited = formatTime(page.LastEditedTime)
	}
	return title, lastEdited, nil
}

func (c *Connector) rememberTitle(id, title string) {
	c.mu.Lock()
	c.titles[id] = title
	c.mu.Unlock()
}

// asPage extracts a page from a search result.
func asPage(obj notionapi.Object) *notionapi.Page {
	if p, ok := obj.(*notionapi.Page); ok {
		return p
	}
	return nil
}

// formatTime renders a Notion timestamp; the zero time becomes empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// classify maps Notion API failures onto the domain error taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: notion: %s: %w", domain.ErrRateLimited, op, err)
		case apiErr.Status == http.StatusNotFound:
			return fmt.Errorf("%w: notion: %s: %w", domain.ErrNotFound, op, err)
		case apiErr.Status == http.StatusUnauthorized:
			return fmt.Errorf("%w: notion: %s: %w", domain.ErrConfiguration, op, err)
		case apiErr.Status >= http.StatusInternalServerError:
			return fmt.Errorf("%w: notion: %s: %w", domain.ErrTransient, op, err)
		default:
			return fmt.Errorf("notion: %s: %w", op, err)
		}
	}

	// Anything else failed before the API answered.
	return fmt.Errorf("%w: notion: %s: %w", domain.ErrTransient, op, err)
}
