package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/footnote/backend/internal/model"
)

var (
	paragraphPattern  = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>|<w:p/>`)
	runTextPattern    = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
	xmlEntityReplacer = strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

// Docx extracts flat paragraph text from a .docx file's raw bytes.
// nguyenthenguyen/docx exposes only the document's raw XML content
// (Editable().GetContent()), not a paragraph API, so paragraphs are
// recovered by scanning <w:p>...</w:p> runs and concatenating their
// <w:t> text runs — flat, with no heading stack, since the library gives
// no run-style information to detect headings from.
func Docx(content []byte) (Document, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Document{}, fmt.Errorf("extract: open docx: %w", err)
	}
	defer r.Close()

	xmlContent := r.Editable().GetContent()

	var blocks []TextBlock
	paraIndex := 0
	for _, para := range paragraphPattern.FindAllString(xmlContent, -1) {
		var sb strings.Builder
		for _, m := range runTextPattern.FindAllStringSubmatch(para, -1) {
			sb.WriteString(xmlEntityReplacer.Replace(m[1]))
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		blocks = append(blocks, TextBlock{
			Text: text,
			Location: model.Location{
				Kind:        model.LocationDoc,
				ElementType: model.ElementParagraph,
				ParaIndex:   paraIndex,
			},
		})
		paraIndex++
	}

	return Document{Blocks: blocks}, nil
}
