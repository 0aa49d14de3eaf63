package notion

import (
	"strings"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/notesync/internal/logger"
)

// renderBlocks converts top-level page blocks to markdown, one block per paragraph.
// Unsupported block types are logged and skipped.
func renderBlocks(pageID string, blocks []notionapi.Block) string {
	var b strings.Builder
	for _, block := range blocks {
		line, ok := renderBlock(block)
		if !ok {
			logger.Debug("notion: page %s: skipping unsupported block type %s", pageID, block.GetType())
			continue
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderBlock(block notionapi.Block) (string, bool) {
	switch blk := block.(type) {
	case *notionapi.ParagraphBlock:
		return plainText(blk.Paragraph.RichText), true
	case *notionapi.Heading1Block:
		return "# " + plainText(blk.Heading1.RichText), true
	case *notionapi.Heading2Block:
		return "## " + plainText(blk.Heading2.RichText), true
	case *notionapi.Heading3Block:
		return "### " + plainText(blk.Heading3.RichText), true
	case *notionapi.BulletedListItemBlock:
		return "* " + plainText(blk.BulletedListItem.RichText), true
	case *notionapi.NumberedListItemBlock:
		return "* " + plainText(blk.NumberedListItem.RichText), true
	case *notionapi.DividerBlock:
		return "---", true
	default:
		return "", false
	}
}

func plainText(rich []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rich {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// pageTitle returns the text of the page's title property, or Untitled.
func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			if title := strings.TrimSpace(plainText(tp.Title)); title != "" {
				return title
			}
		}
	}
	return untitled
}

const untitled = "Untitled"
