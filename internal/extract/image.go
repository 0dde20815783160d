package extract

import (
	"context"
	"fmt"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/model"
)

// maxImageBytes rejects images too large to send to a vision model
// inline, per §4.3's 10 MiB bound.
const maxImageBytes = 10 * 1024 * 1024

const visionPrompt = "This image is named '%s'. Describe this image in detail, including:\n" +
	"1. What the image shows (objects, people, scenes, diagrams, charts, etc.)\n" +
	"2. Any text visible in the image (transcribe it)\n" +
	"3. Key visual details that might be relevant for search and retrieval\n" +
	"4. The overall context or purpose of the image if apparent"

// VisionDescriber is the narrow slice of the LLM capability the image
// extractor needs: a single vision turn returning one text description.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, imageBytes []byte, mediaType, prompt string) (string, error)
}

// Image produces a single descriptive TextBlock for imageContent via a
// vision-capable LLM. Retries are the caller's responsibility (the job
// pipeline's generic retry helper already wraps every provider call);
// this function only validates size and normalizes the mime type.
func Image(ctx context.Context, describer VisionDescriber, imageContent []byte, mimeType, fileName string) (Document, error) {
	if len(imageContent) > maxImageBytes {
		return Document{}, apperr.Permanent("extract: image %s exceeds %d byte limit", fileName, maxImageBytes)
	}

	mediaType := mimeType
	if mediaType == "image/jpg" {
		mediaType = "image/jpeg"
	}

	description, err := describer.DescribeImage(ctx, imageContent, mediaType, fmt.Sprintf(visionPrompt, fileName))
	if err != nil {
		return Document{}, apperr.WrapTransient(err, "extract: describe image %s", fileName)
	}

	return Document{
		Title: fileName,
		Blocks: []TextBlock{{
			Text:     description,
			Location: model.Location{Kind: model.LocationImage},
		}},
	}, nil
}
