package extract

import "strings"

// Kind classifies a mime type into the extractor that handles it.
// Shared by the ingest pipeline and the agent's get_file tool so both
// dispatch on exactly the same rules. Grounded on ExtractionService's
// GOOGLE_DOC_MIMETYPES / PDF_MIMETYPES / VISION_SUPPORTED_MIMETYPES.
type Kind int

const (
	KindUnsupported Kind = iota
	KindGoogleDoc
	KindDocx
	KindSpreadsheet
	KindPDF
	KindImage
)

const (
	MimeGoogleDoc = "application/vnd.google-apps.document"
	MimePDF       = "application/pdf"
	MimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var visionSupportedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var spreadsheetMimeTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.google-apps.spreadsheet":                           true,
	"text/csv":                                                          true,
}

// MaxVisionImageBytes is the size above which an otherwise
// vision-supported image is skipped rather than sent to the model.
const MaxVisionImageBytes = 10 << 20 // 10 MiB, per §4.3/§A4.1 step 3.

// ClassifyMime maps a file's mime type to the extractor that handles it.
func ClassifyMime(mimeType string) Kind {
	switch {
	case mimeType == MimeGoogleDoc:
		return KindGoogleDoc
	case mimeType == MimeDocx:
		return KindDocx
	case spreadsheetMimeTypes[mimeType] || strings.HasSuffix(mimeType, "spreadsheetml.sheet"):
		return KindSpreadsheet
	case mimeType == MimePDF:
		return KindPDF
	case visionSupportedMimeTypes[mimeType]:
		return KindImage
	default:
		return KindUnsupported
	}
}
