package chunk

import (
	"strings"

	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/model"
)

// previewMaxLength bounds the file-level preview used for the file
// embedding and UI display.
const previewMaxLength = 500

// Preview concatenates headings first, then content blocks in order,
// truncated to ≈ previewMaxLength characters.
func Preview(blocks []extract.TextBlock) string {
	var parts []string
	length := 0

	for _, block := range blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}

		if block.Location.ElementType == model.ElementHeading {
			parts = append(parts, text)
			length += len(text)
		} else if length < previewMaxLength {
			remaining := previewMaxLength - length
			if len(text) > remaining {
				text = text[:remaining] + "..."
			}
			parts = append(parts, text)
			length += len(text)
		}

		if length >= previewMaxLength {
			break
		}
	}

	return strings.Join(parts, "\n")
}
