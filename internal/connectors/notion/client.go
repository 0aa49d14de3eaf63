package notion

import (
	"context"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// pageSize is the maximum page size the Notion API accepts.
const pageSize = 100

// api is the subset of the Notion API the connector uses.
type api interface {
	SearchPages(ctx context.Context, cursor notionapi.Cursor) (*notionapi.SearchResponse, error)
	GetPage(ctx context.Context, id string) (*notionapi.Page, error)
	GetChildren(ctx context.Context, blockID string, cursor notionapi.Cursor) (*notionapi.GetChildrenResponse, error)
}

// client adapts notionapi.Client to api.
type client struct {
	notion *notionapi.Client
}

// newClient builds a Notion client whose transport authenticates with token
// and feeds 429 responses to limiter.
func newClient(token string, limiter *RateLimiter, base http.RoundTripper) *client {
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: &rateLimitTransport{base: base, limiter: limiter},
	})
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	httpClient.Timeout = DefaultTimeout

	return &client{
		notion: notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient)),
	}
}

// SearchPages lists pages shared with the integration, oldest edit first.
func (c *client) SearchPages(ctx context.Context, cursor notionapi.Cursor) (*notionapi.SearchResponse, error) {
	return c.notion.Search.Do(ctx, &notionapi.SearchRequest{
		Filter: notionapi.SearchFilter{
			Property: "object",
			Value:    "page",
		},
		Sort: &notionapi.SortObject{
			Timestamp: notionapi.TimestampLastEdited,
			Direction: notionapi.SortOrderASC,
		},
		StartCursor: cursor,
		PageSize:    pageSize,
	})
}

// GetPage retrieves a page with its properties.
func (c *client) GetPage(ctx context.Context, id string) (*notionapi.Page, error) {
	return c.notion.Page.Get(ctx, notionapi.PageID(id))
}

// GetChildren lists one page of a block's children.
func (c *client) GetChildren(ctx context.Context, blockID string, cursor notionapi.Cursor) (*notionapi.GetChildrenResponse, error) {
	return c.notion.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
		StartCursor: cursor,
		PageSize:    pageSize,
	})
}
