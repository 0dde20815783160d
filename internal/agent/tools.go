package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/auth"
	"github.com/footnote/backend/internal/drive"
	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/retrieve"
	"github.com/footnote/backend/internal/store"
)

// toolName enumerates the three tools the agent loop can call, matching
// ToolName.
type toolName string

const (
	toolSearchFolder  toolName = "search_folder"
	toolGetFileChunks toolName = "get_file_chunks"
	toolGetFile       toolName = "get_file"
)

const searchFolderTopK = 10

// toolDefinitions returns the catalog offered to the model each
// iteration, matching ALL_TOOLS's three entries.
func toolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name: string(toolSearchFolder),
			Description: "Search the user's indexed folder for relevant information using hybrid search " +
				"(semantic + keyword). Use this to find specific facts, quotes, or data, or to try " +
				"different terms when previous results were poor.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search query - be specific. Include relevant terms, dates, names, or concepts.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name: string(toolGetFileChunks),
			Description: "Retrieve the indexed content of a specific file by fetching all its pre-processed " +
				"chunks. Fast - uses pre-indexed content.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_id": map[string]any{
						"type":        "string",
						"description": "The UUID of the file to retrieve (from search results).",
					},
				},
				"required": []string{"file_id"},
			},
		},
		{
			Name: string(toolGetFile),
			Description: "Download and extract the full raw content of a file directly from the source " +
				"drive. Slower - downloads fresh and re-extracts; use when indexed chunks may have missed something.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_id": map[string]any{
						"type":        "string",
						"description": "The UUID of the file to retrieve (from search results).",
					},
				},
				"required": []string{"file_id"},
			},
		},
	}
}

// languageModel is the vision capability get_file needs to re-extract an
// image file; Complete/Stream aren't used here, only by the loop itself.
type languageModel = extract.VisionDescriber

// Tools executes the three agent tools against this repo's retriever,
// store, and drive, matching execute_tool's dispatch plus each tool
// module's own body (the body behind ALL_TOOLS is spread across
// app/services/tools/*.py; this package ports one function per tool,
// same as that layout, in a single file since the bodies are short).
type Tools struct {
	store     *store.Store
	retriever *retrieve.Retriever
	drive     drive.SourceDrive
	ocr       extract.OCR
	vision    languageModel
	sessions  *auth.SessionResolver
}

// NewTools builds a Tools executor. vision may be nil — get_file then
// skips image files the way an unsupported mime type is skipped during
// ingest.
func NewTools(s *store.Store, r *retrieve.Retriever, d drive.SourceDrive, ocr extract.OCR, vision languageModel, sessions *auth.SessionResolver) *Tools {
	return &Tools{store: s, retriever: r, drive: d, ocr: ocr, vision: vision, sessions: sessions}
}

// Execute dispatches name to its handler, matching execute_tool. The
// state's indexed-chunk/searched-file bookkeeping is only mutated by
// search_folder and get_file_chunks/get_file (each adds its own file to
// searchedFiles so the final "done" event reports every document the
// loop touched, not just ones surfaced via search).
func (t *Tools) Execute(ctx context.Context, name string, input map[string]any, folderID uuid.UUID, state *turnState) string {
	switch toolName(name) {
	case toolSearchFolder:
		return t.searchFolder(ctx, input, folderID, state)
	case toolGetFileChunks:
		return t.getFileChunks(ctx, input, folderID, state)
	case toolGetFile:
		return t.getFile(ctx, input, folderID, state)
	default:
		b, _ := json.Marshal(map[string]string{"error": fmt.Sprintf("Unknown tool: %s", name)})
		return string(b)
	}
}

// PhaseFor reports the status phase a tool call should be announced
// under, matching agentic_rag's tool_status branching.
func PhaseFor(name string) Phase {
	switch toolName(name) {
	case toolSearchFolder:
		return PhaseSearching
	case toolGetFileChunks, toolGetFile:
		return PhaseReadingFile
	default:
		return PhaseProcessing
	}
}

func (t *Tools) searchFolder(ctx context.Context, input map[string]any, folderID uuid.UUID, state *turnState) string {
	query, _ := input["query"].(string)
	if query == "" {
		b, _ := json.Marshal(map[string]any{"error": "Empty query provided", "chunks": []any{}})
		return string(b)
	}

	results, err := t.retriever.Retrieve(ctx, query, folderID, searchFolderTopK)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	type chunkPayload struct {
		FileID   string  `json:"file_id"`
		FileName string  `json:"file_name"`
		Content  string  `json:"content"`
		Location string  `json:"location"`
		Score    float64 `json:"score"`
	}

	chunks := make([]chunkPayload, 0, len(results))
	for _, r := range results {
		excerpt := excerptOf(r.Text, 500)
		state.recordChunk(indexedChunk{
			chunkID:        r.ChunkID,
			fileName:       r.FileName,
			location:       r.Location.String(),
			excerpt:        excerptOf(excerpt, 200),
			googleDriveURL: buildGoogleDriveURL(r.RemoteFileID),
		})
		chunks = append(chunks, chunkPayload{
			FileID:   r.FileID.String(),
			FileName: r.FileName,
			Content:  excerpt,
			Location: r.Location.String(),
			Score:    round4(r.WeightedScore),
		})
	}

	b, _ := json.Marshal(map[string]any{"chunks": chunks, "total_found": len(results)})
	return string(b)
}

func (t *Tools) getFileChunks(ctx context.Context, input map[string]any, folderID uuid.UUID, state *turnState) string {
	fileID, err := parseFileID(input)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	file, err := t.store.GetFile(ctx, fileID)
	if err != nil || file.FolderID != folderID {
		b, _ := json.Marshal(map[string]string{"error": "File not found or access denied"})
		return string(b)
	}

	chunks, err := t.store.GetChunksForFile(ctx, fileID)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	var content string
	for i, c := range chunks {
		if i > 0 {
			content += "\n\n"
		}
		content += c.Text
		state.recordChunk(indexedChunk{
			chunkID:        c.ID,
			fileName:       file.Name,
			location:       c.Location.String(),
			excerpt:        excerptOf(c.Text, 200),
			googleDriveURL: buildGoogleDriveURL(file.RemoteFileID),
		})
	}

	b, _ := json.Marshal(map[string]any{
		"file_name": file.Name,
		"content":   content,
		"mime_type": file.MimeType,
	})
	return string(b)
}

func (t *Tools) getFile(ctx context.Context, input map[string]any, folderID uuid.UUID, state *turnState) string {
	fileID, err := parseFileID(input)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	file, err := t.store.GetFile(ctx, fileID)
	if err != nil || file.FolderID != folderID {
		b, _ := json.Marshal(map[string]string{"error": "File not found or access denied"})
		return string(b)
	}

	_, accessToken, err := t.sessions.Resolve(ctx, folderID, time.Now())
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": "Could not access the source drive"})
		return string(b)
	}

	doc, err := t.fetchFresh(ctx, accessToken, file.RemoteFileID, file.Name, file.MimeType)
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	content := joinBlocks(doc.Blocks)
	state.recordChunk(indexedChunk{
		chunkID:        uuid.New(),
		fileName:       file.Name,
		location:       "Document",
		excerpt:        excerptOf(content, 200),
		googleDriveURL: buildGoogleDriveURL(file.RemoteFileID),
	})

	b, _ := json.Marshal(map[string]any{
		"file_name": file.Name,
		"content":   content,
		"mime_type": file.MimeType,
	})
	return string(b)
}

// fetchFresh re-downloads and re-extracts fileID, matching get_file's
// "slower but freshest" path. Dispatch follows the same
// extract.ClassifyMime rules as the ingest pipeline.
func (t *Tools) fetchFresh(ctx context.Context, accessToken, remoteFileID, name, mimeType string) (extract.Document, error) {
	switch extract.ClassifyMime(mimeType) {
	case extract.KindGoogleDoc:
		html, err := t.drive.ExportAs(ctx, accessToken, remoteFileID, "text/html")
		if err != nil {
			return extract.Document{}, err
		}
		return extract.DocHTML(html)
	case extract.KindDocx:
		content, err := t.drive.Download(ctx, accessToken, remoteFileID)
		if err != nil {
			return extract.Document{}, err
		}
		return extract.Docx(content)
	case extract.KindSpreadsheet:
		content, err := t.drive.Download(ctx, accessToken, remoteFileID)
		if err != nil {
			return extract.Document{}, err
		}
		return extract.Spreadsheet(content)
	case extract.KindPDF:
		content, err := t.drive.Download(ctx, accessToken, remoteFileID)
		if err != nil {
			return extract.Document{}, err
		}
		return extract.PDF(ctx, t.ocr, content)
	case extract.KindImage:
		if t.vision == nil {
			return extract.Document{}, apperr.Permanent("agent: no vision model configured")
		}
		content, err := t.drive.Download(ctx, accessToken, remoteFileID)
		if err != nil {
			return extract.Document{}, err
		}
		return extract.Image(ctx, t.vision, content, mimeType, name)
	default:
		return extract.Document{}, apperr.Permanent("agent: unsupported mime type %s", mimeType)
	}
}

func parseFileID(input map[string]any) (uuid.UUID, error) {
	s, _ := input["file_id"].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid file ID format")
	}
	return id, nil
}

func joinBlocks(blocks []extract.TextBlock) string {
	var content string
	for i, b := range blocks {
		if i > 0 {
			content += "\n\n"
		}
		content += b.Text
	}
	return content
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}
