package chunker

import "strings"

// draft is a chunk parsed from a model response, before token counting.
type draft struct {
	text    string
	summary string
}

// parseResponse reads the CHUNK line protocol.
// The first line after a SUMMARY marker is the summary, the following lines
// are content. A chunk is kept only if it has both.
func parseResponse(response string) []draft {
	var (
		drafts  []draft
		summary string
		content []string
	)

	flush := func() {
		if len(content) > 0 && summary != "" {
			drafts = append(drafts, draft{text: strings.Join(content, "\n"), summary: summary})
		}
		content = nil
		summary = ""
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "CHUNK") && strings.Contains(line, "SUMMARY:"):
			flush()
		case strings.HasPrefix(line, "CHUNK") && strings.Contains(line, "CONTENT:"):
			continue
		case summary == "":
			summary = line
		default:
			content = append(content, line)
		}
	}
	flush()

	return drafts
}
