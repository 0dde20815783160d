package job

import "github.com/footnote/backend/internal/extract"

// maxVisionImageBytes mirrors extract.MaxVisionImageBytes locally so
// ingest.go's dispatch reads the same as it always has; the
// classification rules themselves now live in internal/extract,
// shared with the agent's get_file tool.
const maxVisionImageBytes = extract.MaxVisionImageBytes

func isGoogleDoc(mimeType string) bool { return extract.ClassifyMime(mimeType) == extract.KindGoogleDoc }
func isDocx(mimeType string) bool      { return extract.ClassifyMime(mimeType) == extract.KindDocx }
func isSpreadsheet(mimeType string) bool {
	return extract.ClassifyMime(mimeType) == extract.KindSpreadsheet
}
func isPDF(mimeType string) bool { return extract.ClassifyMime(mimeType) == extract.KindPDF }
func isVisionSupported(mimeType string) bool {
	return extract.ClassifyMime(mimeType) == extract.KindImage
}
