// Package extract converts raw file bytes into a sequence of TextBlocks,
// one extractor per source format, feeding internal/chunk. Each extractor
// is a plain function/struct with no dependency on internal/store or
// internal/drive — it consumes only the bytes (or exported text) and
// metadata the caller already fetched.
package extract

import (
	"context"

	"github.com/footnote/backend/internal/model"
)

// TextBlock is a single structural unit yielded by an extractor: a
// heading, paragraph, list, table, page-paragraph, image description, or
// sheet. HeadingContext carries the nearest enclosing heading path, when
// the format has one, so the chunker can stamp it onto merged chunks.
type TextBlock struct {
	Text           string
	Location       model.Location
	HeadingContext string
}

// Document is the result of running one extractor over one file.
type Document struct {
	Title  string
	Blocks []TextBlock
}

// OCR is the capability consumed by the PDF extractor: render PDF bytes
// into per-page Markdown. Implementations must map upstream failures so
// the caller can fall back to local text extraction.
type OCR interface {
	ProcessPDF(ctx context.Context, pdfBytes []byte) (pages []string, err error)
}
