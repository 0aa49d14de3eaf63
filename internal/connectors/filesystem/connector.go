// Package filesystem provides a document source over a directory of markdown files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.DocumentSource = (*Connector)(nil)

// markdownExtensions are the file extensions treated as pages.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Connector lists and reads markdown files under a root directory.
// Document IDs are slash-separated paths relative to the root.
type Connector struct {
	rootPath string
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeFilesystem
}

// ListDocuments walks the root and returns every visible markdown file,
// sorted by ID.
func (c *Connector) ListDocuments(ctx context.Context) ([]domain.DocumentRef, error) {
	if err := c.validateRoot(); err != nil {
		return nil, err
	}

	var refs []domain.DocumentRef
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(c.rootPath, path)
		if relErr != nil {
			return relErr
		}
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !markdownExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		refs = append(refs, domain.DocumentRef{
			ID:             filepath.ToSlash(rel),
			LastEditedTime: formatModTime(info.ModTime()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filesystem: walk %s: %w", c.rootPath, err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// FetchDocument reads a markdown file. The title is the first "# " heading
// when the file opens with one, otherwise the file name without extension.
func (c *Connector) FetchDocument(ctx context.Context, ref domain.DocumentRef) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := c.resolve(ref.ID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("filesystem: %s: %w", ref.ID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("filesystem: stat %s: %w", ref.ID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filesystem: read %s: %w", ref.ID, err)
	}

	title, body := splitTitle(string(data))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &domain.SourceDocument{
		ID:             ref.ID,
		Title:          title,
		Markdown:       body,
		LastEditedTime: formatModTime(info.ModTime()),
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// validateRoot checks the root exists and is a directory.
func (c *Connector) validateRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: filesystem: root %s does not exist", domain.ErrConfiguration, c.rootPath)
		}
		return fmt.Errorf("filesystem: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: filesystem: root %s is not a directory", domain.ErrConfiguration, c.rootPath)
	}
	return nil
}

// resolve maps a document ID to a path, rejecting IDs that escape the root.
func (c *Connector) resolve(id string) (string, error) {
	rel := filepath.FromSlash(id)
	if id == "" || filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: filesystem: invalid document id %q", domain.ErrInvalidInput, id)
	}
	return filepath.Join(c.rootPath, rel), nil
}

// splitTitle removes a leading "# " heading and returns it with the rest of the text.
func splitTitle(text string) (title, body string) {
	rest := text
	for rest != "" {
		line, after, _ := strings.Cut(rest, "\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			rest = after
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:]), after
		}
		break
	}
	return "", text
}

// formatModTime renders a modification time the way sources report timestamps.
func formatModTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
