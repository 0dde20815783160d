package agent

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/footnote/backend/internal/model"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// extractCitationNumbers finds every distinct [N] marker in text,
// matching extract_citation_numbers / extract_citations_from_text's
// shared regex.
func extractCitationNumbers(text string) map[int]bool {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	numbers := make(map[int]bool, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers[n] = true
	}
	return numbers
}

// buildGoogleDriveURL mirrors build_google_drive_url.
func buildGoogleDriveURL(remoteFileID string) string {
	if remoteFileID == "" {
		return ""
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", remoteFileID)
}

// buildCitations maps every [N] marker in text with 1 <= N <=
// len(chunks) to chunks[N-1], keyed by its stringified number, matching
// extract_citations_from_text / the chat-mode equivalent in rag.py.
func buildCitations(text string, chunks []indexedChunk) map[string]model.Citation {
	numbers := extractCitationNumbers(text)
	citations := make(map[string]model.Citation, len(numbers))
	for n := range numbers {
		if n < 1 || n > len(chunks) {
			continue
		}
		c := chunks[n-1]
		citations[strconv.Itoa(n)] = model.Citation{
			ChunkID:   c.chunkID,
			FileName:  c.fileName,
			Location:  c.location,
			Excerpt:   c.excerpt,
			SourceURL: c.googleDriveURL,
		}
	}
	return citations
}

// excerptOf truncates text to maxLen runes of context for a citation
// excerpt, appending "..." when truncated, matching rag.py's
// chunk.chunk_text[:200] + "...".
func excerptOf(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
