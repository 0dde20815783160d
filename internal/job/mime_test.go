package job

import "testing"

func TestMimeDispatch(t *testing.T) {
	cases := []struct {
		mimeType string
		want     string
	}{
		{"application/vnd.google-apps.document", "doc"},
		{"application/pdf", "pdf"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
		{"image/png", "vision"},
		{"image/jpeg", "vision"},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "sheet"},
		{"application/vnd.google-apps.spreadsheet", "sheet"},
		{"text/csv", "sheet"},
		{"application/zip", "unsupported"},
	}

	for _, c := range cases {
		got := classify(c.mimeType)
		if got != c.want {
			t.Errorf("classify(%q) = %q, want %q", c.mimeType, got, c.want)
		}
	}
}

// classify mirrors extractDocument's dispatch switch, letting the test
// assert on the mime helpers directly without building a Pipeline.
func classify(mimeType string) string {
	switch {
	case isGoogleDoc(mimeType):
		return "doc"
	case isDocx(mimeType):
		return "docx"
	case isSpreadsheet(mimeType):
		return "sheet"
	case isPDF(mimeType):
		return "pdf"
	case isVisionSupported(mimeType):
		return "vision"
	default:
		return "unsupported"
	}
}
