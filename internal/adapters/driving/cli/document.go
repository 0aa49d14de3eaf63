package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect synchronised documents",
	Long:  `List synchronised documents, show their metadata or print their chunks.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synchronised documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print a document's chunks in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

// documentContent is a flag for the get command.
var documentContent bool

func init() {
	documentGetCmd.Flags().BoolVar(&documentContent, "content", false, "also print the stored content")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents synchronised yet.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:    %s\n", docs[i].Title)
		cmd.Printf("    Chunks:   %d\n", docs[i].ChunkCount)
		cmd.Printf("    Modified: %s\n", docs[i].LastModified.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:       %s\n", doc.Title)
	cmd.Printf("  Modified:    %s\n", doc.LastModified.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Hash:        %s\n", doc.ContentHash)
	cmd.Printf("  Chunks:      %d\n", doc.ChunkCount)
	cmd.Printf("  References:  %d\n", doc.ReferenceCount)

	if documentContent && doc.Content != "" {
		cmd.Println()
		cmd.Println(doc.Content)
	}
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.GetChunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Printf("No chunks stored for document: %s\n", args[0])
		return nil
	}

	for i := range chunks {
		c := chunks[i]
		cmd.Printf("[%d/%d] %s (%d tokens)\n", c.Index+1, len(chunks), c.ID(), c.TokenCount)
		if c.HasSummary() {
			cmd.Printf("  Summary: %s\n", c.Summary)
		}
		if c.Provenance.ChunkingModel != "" {
			cmd.Printf("  Model:   %s/%s\n", c.Provenance.ChunkingProvider, c.Provenance.ChunkingModel)
		}
		cmd.Println()
		cmd.Println(indent(c.Text, "  "))
		cmd.Println()
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
