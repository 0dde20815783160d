package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/model"
)

// PDF extracts TextBlocks from pdfBytes via ocr's per-page Markdown. If
// the OCR call fails, it falls back to raw per-page text pulled locally
// with ledongthuc/pdf — the original's _fallback_extraction is a no-op
// that silently yields zero blocks; this repo grounds a real fallback so
// a PDF isn't skipped purely because the OCR provider is unavailable.
func PDF(ctx context.Context, ocr OCR, pdfBytes []byte) (Document, error) {
	pages, err := ocr.ProcessPDF(ctx, pdfBytes)
	if err != nil {
		pages, err = fallbackPages(pdfBytes)
		if err != nil {
			return Document{}, apperr.WrapPermanent(err, "extract: pdf ocr and fallback both failed")
		}
	}

	var blocks []TextBlock
	var title string
	for i, markdown := range pages {
		pageBlocks := parseMarkdownPage(markdown, i+1)
		blocks = append(blocks, pageBlocks...)
		if title == "" && len(pageBlocks) > 0 && len(pageBlocks[0].Text) < 200 {
			title = pageBlocks[0].Text
		}
	}
	return Document{Title: title, Blocks: blocks}, nil
}

// fallbackPages pulls raw per-page text with ledongthuc/pdf, wrapping
// each page's text as if it were a single unheaded Markdown block so it
// flows through the same parser as the OCR path.
func fallbackPages(pdfBytes []byte) ([]string, error) {
	r, err := pdflib.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("extract: open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// parseMarkdownPage tokenizes one page's Markdown: a "#" line begins a
// heading (level = "#" count); a blank line terminates a running
// non-heading block. Grounded on the original's _parse_markdown_blocks.
func parseMarkdownPage(markdown string, pageNum int) []TextBlock {
	var blocks []TextBlock
	var currentHeading string
	var currentLines []string
	blockIndex := 0

	flush := func() {
		if len(currentLines) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(currentLines, "\n"))
		currentLines = nil
		if text == "" {
			return
		}
		blocks = append(blocks, TextBlock{
			Text: text,
			Location: model.Location{
				Kind:       model.LocationPDF,
				Page:       pageNum,
				BlockIndex: blockIndex,
			},
			HeadingContext: currentHeading,
		})
		blockIndex++
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			headingText := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			currentHeading = headingText
			blocks = append(blocks, TextBlock{
				Text: headingText,
				Location: model.Location{
					Kind:         model.LocationPDF,
					Page:         pageNum,
					BlockIndex:   blockIndex,
					ElementType:  model.ElementHeading,
					HeadingLevel: level,
				},
				HeadingContext: headingText,
			})
			blockIndex++
		case trimmed == "":
			flush()
		default:
			currentLines = append(currentLines, trimmed)
		}
	}
	flush()
	return blocks
}
