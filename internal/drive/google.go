package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/httpclient"
)

// driveAPIBase is the Google Drive v3 REST root, grounded on
// DriveService.DRIVE_API_BASE.
const driveAPIBase = "https://www.googleapis.com/drive/v3"

// GoogleDrive is a SourceDrive adapter for the Google Drive REST API.
// Access tokens are passed per-call rather than held on the struct, since
// one process-wide GoogleDrive instance serves every user's Session.
type GoogleDrive struct {
	http    *httpclient.Client
	apiBase string
}

// NewGoogleDrive builds a GoogleDrive client with the shared retry/backoff
// HTTP client, using OpenAI-shaped header parsing since Drive's quota
// errors surface only a plain Retry-After header.
func NewGoogleDrive() *GoogleDrive {
	return &GoogleDrive{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterOnly),
		),
		apiBase: driveAPIBase,
	}
}

type driveFileListResponse struct {
	Files []driveFile `json:"files"`
	Next  string      `json:"nextPageToken"`
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	Size         string `json:"size"`
}

func (f driveFile) toMeta() FileMeta {
	meta := FileMeta{ID: f.ID, Name: f.Name, MimeType: f.MimeType}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			meta.ModifiedTime = &t
		}
	}
	if f.Size != "" {
		if n, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
			meta.Size = n
		}
	}
	return meta
}

func (g *GoogleDrive) ListFiles(ctx context.Context, accessToken, folderID, pageToken string) ([]FileMeta, string, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	q.Set("fields", "nextPageToken, files(id, name, mimeType, modifiedTime, size)")
	q.Set("pageSize", "100")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	resp, err := g.get(ctx, accessToken, "/files", q)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var out driveFileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("drive: decode list response: %w", err)
	}

	files := make([]FileMeta, len(out.Files))
	for i, f := range out.Files {
		files[i] = f.toMeta()
	}
	return files, out.Next, nil
}

func (g *GoogleDrive) GetFileMetadata(ctx context.Context, accessToken, fileID string) (FileMeta, error) {
	q := url.Values{"fields": {"id, name, mimeType, modifiedTime, size"}}
	resp, err := g.get(ctx, accessToken, "/files/"+fileID, q)
	if err != nil {
		return FileMeta{}, err
	}
	defer resp.Body.Close()

	var f driveFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return FileMeta{}, fmt.Errorf("drive: decode file metadata: %w", err)
	}
	return f.toMeta(), nil
}

func (g *GoogleDrive) ExportAs(ctx context.Context, accessToken, fileID, mimeType string) (string, error) {
	q := url.Values{"mimeType": {mimeType}}
	resp, err := g.get(ctx, accessToken, "/files/"+fileID+"/export", q)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("drive: read export body: %w", err)
	}
	return string(body), nil
}

func (g *GoogleDrive) Download(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	q := url.Values{"alt": {"media"}}
	resp, err := g.get(ctx, accessToken, "/files/"+fileID, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: read download body: %w", err)
	}
	return body, nil
}

func (g *GoogleDrive) get(ctx context.Context, accessToken, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("drive: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, mapStatusError(resp)
}

// mapTransportError classifies a network-level failure (the retry budget
// was exhausted, or the request context was cancelled) as Transient so
// the worker retries it under the normal backoff policy.
func mapTransportError(err error) error {
	return apperr.WrapTransient(err, "drive: request failed")
}

// mapStatusError maps upstream HTTP status to the taxonomy the
// synchronizer's folder_not_found/permission_denied/rate_limited error
// mapping expects.
func mapStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := fmt.Sprintf("drive: HTTP %d: %s", resp.StatusCode, string(body))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.NotFound("%s", msg)
	case http.StatusForbidden, http.StatusUnauthorized:
		return apperr.Auth("%s", msg)
	case http.StatusTooManyRequests:
		return apperr.Transient("%s", msg)
	default:
		if resp.StatusCode >= 500 {
			return apperr.Transient("%s", msg)
		}
		return apperr.Permanent("%s", msg)
	}
}
