package job

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/chunk"
	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/store"
)

// languageModel is the slice of capability ingest needs from a
// provider: Complete for contextual-chunk enrichment, DescribeImage
// for the vision extractor. Anthropic and Gemini both satisfy it.
type languageModel interface {
	llm.LLM
	extract.VisionDescriber
}

// ingestResult reports what happened to one file, for logging/metrics;
// it carries no retry decision of its own (see runIngest's caller).
type ingestResult struct {
	status string
	chunks int
}

// runIngest executes the per-file ingest pipeline: resolve credentials,
// fetch content, extract, chunk, embed, and atomically replace the
// file's stored chunks. Grounded on _process_job_async's ten steps.
// Every error returned is already an *apperr.Error, so the caller can
// classify it with apperr.IsRetryable without further inspection.
func (p *Pipeline) runIngest(ctx context.Context, j *model.IndexingJob) (ingestResult, error) {
	now := time.Now()

	_, accessToken, err := p.sessions.Resolve(ctx, j.FolderID, now)
	if err != nil {
		return ingestResult{}, err
	}

	file, err := p.store.GetFile(ctx, j.FileID)
	if err != nil {
		return ingestResult{}, apperr.WrapPermanent(err, "job: file %s not found", j.FileID)
	}

	document, skip, err := p.extractDocument(ctx, accessToken, file)
	if err != nil {
		return ingestResult{}, err
	}
	if skip {
		if err := p.finishFile(ctx, j.FolderID, file.ID, model.FileSkipped); err != nil {
			return ingestResult{}, err
		}
		return ingestResult{status: "skipped"}, nil
	}

	if len(document.Blocks) == 0 {
		if err := p.finishFile(ctx, j.FolderID, file.ID, model.FileIndexed); err != nil {
			return ingestResult{}, err
		}
		return ingestResult{status: "completed"}, nil
	}

	preview := chunk.Preview(document.Blocks)

	var fileEmbedding []float32
	if preview != "" {
		fileEmbedding, err = p.embedder.Embed(ctx, preview)
		if err != nil {
			return ingestResult{}, apperr.WrapTransient(err, "job: embed file preview")
		}
	}

	chunks := chunk.Document(document.Blocks)
	if len(chunks) == 0 {
		if err := p.replaceChunksAndFinish(ctx, j.FolderID, file.ID, preview, fileEmbedding, nil); err != nil {
			return ingestResult{}, err
		}
		return ingestResult{status: "completed"}, nil
	}

	if p.contextualChunkingOn {
		fullDocument := joinBlockText(document.Blocks)
		chunks = contextualizeChunks(ctx, p.model, file.Name, fullDocument, chunks)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return ingestResult{}, apperr.WrapTransient(err, "job: embed chunks")
	}

	modelChunks := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		var v []float32
		if i < len(embeddings) {
			v = embeddings[i]
		}
		modelChunks[i] = model.Chunk{
			FileID:     file.ID,
			Text:       c.Text,
			Embedding:  v,
			Location:   c.Location,
			ChunkIndex: c.ChunkIndex,
		}
	}

	if err := p.replaceChunksAndFinish(ctx, j.FolderID, file.ID, preview, fileEmbedding, modelChunks); err != nil {
		return ingestResult{}, err
	}
	return ingestResult{status: "completed", chunks: len(chunks)}, nil
}

// extractDocument dispatches on mime type and returns (doc, skip, err).
// skip is true only for unsupported mime types and oversized vision
// images, which never even reach the drive. A 403 from the drive (and
// every other Permanent-kind err this returns) instead comes back as an
// error; Pipeline.process reclassifies any non-retryable err into the
// same Skipped-file/Completed-job outcome, so both paths converge on
// skip without retry.
func (p *Pipeline) extractDocument(ctx context.Context, accessToken string, file *model.File) (extract.Document, bool, error) {
	mimeType := file.MimeType

	switch {
	case isGoogleDoc(mimeType):
		html, err := p.drive.ExportAs(ctx, accessToken, file.RemoteFileID, "text/html")
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		doc, err := extract.DocHTML(html)
		if err != nil {
			return extract.Document{}, false, apperr.WrapPermanent(err, "job: extract doc html")
		}
		return doc, false, nil

	case isDocx(mimeType):
		content, err := p.drive.Download(ctx, accessToken, file.RemoteFileID)
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		doc, err := extract.Docx(content)
		if err != nil {
			return extract.Document{}, false, apperr.WrapPermanent(err, "job: extract docx")
		}
		return doc, false, nil

	case isSpreadsheet(mimeType):
		content, err := p.drive.Download(ctx, accessToken, file.RemoteFileID)
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		doc, err := extract.Spreadsheet(content)
		if err != nil {
			return extract.Document{}, false, apperr.WrapPermanent(err, "job: extract spreadsheet")
		}
		return doc, false, nil

	case isPDF(mimeType):
		content, err := p.drive.Download(ctx, accessToken, file.RemoteFileID)
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		doc, err := extract.PDF(ctx, p.ocr, content)
		if err != nil {
			return extract.Document{}, false, apperr.WrapTransient(err, "job: extract pdf")
		}
		return doc, false, nil

	case isVisionSupported(mimeType):
		meta, err := p.drive.GetFileMetadata(ctx, accessToken, file.RemoteFileID)
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		if meta.Size > maxVisionImageBytes {
			return extract.Document{}, true, nil
		}
		content, err := p.drive.Download(ctx, accessToken, file.RemoteFileID)
		if err != nil {
			return extract.Document{}, false, mapDriveErr(err)
		}
		doc, err := extract.Image(ctx, p.model, content, mimeType, file.Name)
		if err != nil {
			return extract.Document{}, false, err
		}
		return doc, false, nil

	default:
		return extract.Document{}, true, nil
	}
}

// mapDriveErr maps a drive Auth error (403 from GoogleDrive's
// mapStatusError) to Permanent, so Pipeline.process routes it to skip
// rather than retry, matching _process_job_async's httpx.HTTPStatusError
// 403 handling. Everything else passes through: internal/drive already
// classifies Transient vs Permanent.
func mapDriveErr(err error) error {
	if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindAuth {
		return apperr.WrapPermanent(err, "job: permission denied")
	}
	return err
}

func joinBlockText(blocks []extract.TextBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n")
}

// finishFile sets file's terminal status with no content to persist
// (skipped, or indexed-with-zero-blocks) and recomputes folder progress.
func (p *Pipeline) finishFile(ctx context.Context, folderID, fileID uuid.UUID, status model.FileStatus) error {
	if err := p.store.SetFileStatus(ctx, fileID, status); err != nil {
		return apperr.WrapTransient(err, "job: set file status")
	}
	return p.refreshProgress(ctx, folderID)
}

// replaceChunksAndFinish performs §4.1 step 9's atomic replace: update
// the file's preview/embedding, delete+bulk-insert its chunks, commit,
// then recompute folder progress outside the transaction.
func (p *Pipeline) replaceChunksAndFinish(ctx context.Context, folderID, fileID uuid.UUID, preview string, fileEmbedding []float32, chunks []model.Chunk) error {
	file, err := p.store.GetFile(ctx, fileID)
	if err != nil {
		return apperr.WrapTransient(err, "job: reload file before replace")
	}
	folder, err := p.store.GetFolder(ctx, folderID)
	if err != nil {
		return apperr.WrapTransient(err, "job: reload folder before replace")
	}

	err = p.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := p.store.SetFileIndexed(ctx, tx, file.ID, preview, fileEmbedding); err != nil {
			return err
		}
		return store.ReplaceChunks(ctx, tx, file.ID, folder.UserID, chunks)
	})
	if err != nil {
		return apperr.WrapTransient(err, "job: replace chunks")
	}
	return p.refreshProgress(ctx, folderID)
}

func (p *Pipeline) refreshProgress(ctx context.Context, folderID uuid.UUID) error {
	if err := p.store.RefreshFolderProgress(ctx, folderID); err != nil {
		return apperr.WrapTransient(err, "job: refresh folder progress")
	}
	return nil
}
