package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// Export formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export synchronised data",
	Long:  `Write documents with their chunks, or the relationship graph, to stdout as JSON or YAML.`,
}

var exportDocumentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Export documents with their chunks",
	Args:  cobra.NoArgs,
	RunE:  runExportDocuments,
}

var exportRelationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "Export the relationship graph",
	Args:  cobra.NoArgs,
	RunE:  runExportRelationships,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportFormat, "format", "f", formatJSON, "output format: json or yaml")

	exportCmd.AddCommand(exportDocumentsCmd)
	exportCmd.AddCommand(exportRelationshipsCmd)
	rootCmd.AddCommand(exportCmd)
}

type exportedChunk struct {
	ID         string `json:"id" yaml:"id"`
	Index      int    `json:"index" yaml:"index"`
	Text       string `json:"text" yaml:"text"`
	Summary    string `json:"summary,omitempty" yaml:"summary,omitempty"`
	TokenCount int    `json:"token_count" yaml:"token_count"`
	Next       string `json:"next,omitempty" yaml:"next,omitempty"`
	ChunkModel string `json:"chunking_model,omitempty" yaml:"chunking_model,omitempty"`
	EmbedModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

type exportedDocument struct {
	ID           string          `json:"id" yaml:"id"`
	Title        string          `json:"title" yaml:"title"`
	ContentHash  string          `json:"content_hash" yaml:"content_hash"`
	LastModified string          `json:"last_modified" yaml:"last_modified"`
	References   int             `json:"references" yaml:"references"`
	Chunks       []exportedChunk `json:"chunks" yaml:"chunks"`
}

type exportedRelationship struct {
	Subject      string   `json:"subject" yaml:"subject"`
	Relationship string   `json:"relationship" yaml:"relationship"`
	Object       string   `json:"object" yaml:"object"`
	References   int      `json:"references" yaml:"references"`
	NoteIDs      []string `json:"note_ids" yaml:"note_ids"`
}

func runExportDocuments(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if err := checkExportFormat(exportFormat); err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, err := documentService.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := make([]exportedDocument, 0, len(docs))
	for i := range docs {
		chunks, err := documentService.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return fmt.Errorf("failed to get chunks of %s: %w", docs[i].ID, err)
		}
		out = append(out, toExportedDocument(docs[i], chunks))
	}

	return writeExport(cmd.OutOrStdout(), exportFormat, out)
}

func runExportRelationships(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if err := checkExportFormat(exportFormat); err != nil {
		return err
	}

	records, err := documentService.ListRelationships(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list relationships: %w", err)
	}

	out := make([]exportedRelationship, 0, len(records))
	for _, r := range records {
		out = append(out, exportedRelationship{
			Subject:      r.Subject,
			Relationship: r.Type,
			Object:       r.Object,
			References:   r.References,
			NoteIDs:      r.NoteIDs,
		})
	}

	return writeExport(cmd.OutOrStdout(), exportFormat, out)
}

func toExportedDocument(doc domain.Document, chunks []domain.Chunk) exportedDocument {
	ed := exportedDocument{
		ID:           doc.ID,
		Title:        doc.Title,
		ContentHash:  doc.ContentHash,
		LastModified: doc.LastModified.UTC().Format(time.RFC3339),
		References:   doc.ReferenceCount,
		Chunks:       make([]exportedChunk, 0, len(chunks)),
	}
	for _, c := range chunks {
		ed.Chunks = append(ed.Chunks, exportedChunk{
			ID:         c.ID(),
			Index:      c.Index,
			Text:       c.Text,
			Summary:    c.Summary,
			TokenCount: c.TokenCount,
			Next:       c.Next,
			ChunkModel: c.Provenance.ChunkingModel,
			EmbedModel: c.Provenance.EmbeddingModel,
		})
	}
	return ed
}

func checkExportFormat(format string) error {
	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	return nil
}

func writeExport(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
