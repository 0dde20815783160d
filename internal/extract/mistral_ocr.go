package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/httpclient"
)

// MistralOCR implements OCR against Mistral's document OCR endpoint.
// Grounded on original_source's PDFExtractor, which calls the official
// Mistral SDK's ocr.process with a base64 data URL; this adapter makes
// the same request directly over HTTP, matching the hand-rolled-client
// idiom used throughout the rest of this package's provider adapters.
type MistralOCR struct {
	http    *httpclient.Client
	apiKey  string
	baseURL string
	model   string
}

// NewMistralOCR builds a Mistral OCR adapter.
func NewMistralOCR(apiKey string) *MistralOCR {
	return &MistralOCR{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterOnly),
		),
		apiKey:  apiKey,
		baseURL: "https://api.mistral.ai/v1",
		model:   "mistral-ocr-latest",
	}
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRRequest struct {
	Model              string             `json:"model"`
	Document           mistralOCRDocument `json:"document"`
	IncludeImageBase64 bool               `json:"include_image_base64"`
}

type mistralOCRResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

func (m *MistralOCR) ProcessPDF(ctx context.Context, pdfBytes []byte) ([]string, error) {
	if m.apiKey == "" {
		return nil, apperr.Validation("extract: mistral OCR API key is not configured")
	}

	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdfBytes)
	reqBody, err := json.Marshal(mistralOCRRequest{
		Model:              m.model,
		Document:           mistralOCRDocument{Type: "document_url", DocumentURL: dataURL},
		IncludeImageBase64: false,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: marshal mistral ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/ocr", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("extract: build mistral ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, apperr.WrapTransient(err, "extract: mistral ocr request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapMistralStatus(resp.StatusCode)
	}

	var out mistralOCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extract: decode mistral ocr response: %w", err)
	}

	pages := make([]string, len(out.Pages))
	for i, p := range out.Pages {
		pages[i] = p.Markdown
	}
	return pages, nil
}

func mapMistralStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound("extract: mistral ocr returned 404")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Auth("extract: mistral ocr returned %d", status)
	case status == http.StatusTooManyRequests:
		return apperr.Transient("extract: mistral ocr rate limited")
	case status >= 500:
		return apperr.Transient("extract: mistral ocr returned HTTP %d", status)
	default:
		return apperr.Permanent("extract: mistral ocr returned HTTP %d", status)
	}
}
