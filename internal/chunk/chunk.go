// Package chunk implements the document chunking algorithm: grouping
// internal/extract TextBlocks into embeddable chunks that respect
// document structure, merging small blocks and splitting oversized ones
// with sentence-aware overlap.
package chunk

import (
	"regexp"
	"strings"

	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/model"
)

// Size constants in characters, per §4.3.
const (
	Target  = 1500
	Max     = 2000
	Min     = 100
	Overlap = 150
)

// Chunk is one emitted, embeddable fragment, ready for internal/store's
// ReplaceChunks.
type Chunk struct {
	Text       string
	Location   model.Location
	ChunkIndex int
}

var sentenceBoundary = regexp.MustCompile(`(?s)(?:[.!?])\s+`)

// Document converts blocks into chunks in emission order, assigning
// chunk_index 0,1,2,... Grounded on chunk_document's flush/split/merge
// state machine.
func Document(blocks []extract.TextBlock) []Chunk {
	var chunks []Chunk
	var buf strings.Builder
	var bufLoc model.Location
	haveLoc := false
	chunkIndex := 0

	flush := func() {
		if buf.Len() >= Min {
			chunks = append(chunks, Chunk{Text: buf.String(), Location: bufLoc, ChunkIndex: chunkIndex})
			chunkIndex++
		}
		buf.Reset()
		haveLoc = false
	}

	for _, block := range blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		isHeading := block.Location.ElementType == model.ElementHeading

		if buf.Len() > 0 {
			combined := buf.Len() + len(text) + 2
			if isHeading || combined > Target {
				flush()
			}
		}

		if len(text) > Max {
			split := splitLarge(text, block.Location, chunkIndex)
			chunks = append(chunks, split...)
			chunkIndex += len(split)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n\n")
			buf.WriteString(text)
		} else {
			buf.WriteString(text)
			bufLoc = block.Location
			haveLoc = true
		}
		if block.HeadingContext != "" && haveLoc {
			bufLoc.HeadingPath = preferNonEmpty(bufLoc.HeadingPath, block.HeadingContext)
		}
	}
	flush()

	return chunks
}

func preferNonEmpty(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}

// splitLarge splits an oversized block on sentence boundaries,
// accumulating up to Target characters per cut and seeding the next
// chunk with an overlap tail.
func splitLarge(text string, baseLoc model.Location, startIndex int) []Chunk {
	sentences := splitSentences(text)
	var chunks []Chunk
	var current strings.Builder
	idx := startIndex

	emit := func() {
		loc := baseLoc
		loc.SubChunk = idx - startIndex
		chunks = append(chunks, Chunk{Text: strings.TrimSpace(current.String()), Location: loc, ChunkIndex: idx})
		idx++
	}

	for _, sentence := range sentences {
		if current.Len()+len(sentence)+1 > Target && current.Len() > 0 {
			emit()
			overlap := overlapTail(current.String())
			current.Reset()
			if overlap != "" {
				current.WriteString(overlap)
				current.WriteString(" ")
			}
			current.WriteString(sentence)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	if strings.TrimSpace(current.String()) != "" {
		emit()
	}
	return chunks
}

func splitSentences(text string) []string {
	raw := sentenceBoundary.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// overlapTail returns the trailing Overlap-character window of text,
// preferring to break at a sentence boundary within a 2x window.
func overlapTail(text string) string {
	if len(text) <= Overlap {
		return text
	}
	start := len(text) - Overlap*2
	if start < 0 {
		start = 0
	}
	region := text[start:]
	sentences := splitSentences(region)
	if len(sentences) >= 2 {
		return sentences[len(sentences)-1]
	}
	return text[len(text)-Overlap:]
}
