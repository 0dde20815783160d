package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/footnote/backend/internal/apperr"
)

// Gemini is an LLM adapter built on the official google.golang.org/genai
// SDK. Grounded on pkg/model/gemini/gemini.go's request/response mapping,
// narrowed to this package's Message/ToolDefinition contract.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini adapter against the Gemini Developer API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) buildContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var parts []*genai.Part
		role := "user"

		switch m.Role {
		case RoleAssistant:
			role = "model"
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			if m.ToolCall != nil {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID: m.ToolCall.ID, Name: m.ToolCall.Name, Args: m.ToolCall.Input,
				}})
			}
		case RoleTool:
			role = "user"
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Response: map[string]any{"result": m.Text},
			}})
		default: // RoleUser
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, img := range m.Images {
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MediaType, Data: img.Data}})
			}
		}

		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func buildGenaiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]*genai.Tool, len(tools))
	for i, t := range tools {
		out[i] = &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGenaiSchema(t.Parameters),
		}}}
	}
	return out
}

func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	return s
}

func (g *Gemini) Complete(ctx context.Context, system string, messages []Message, tools []ToolDefinition, maxTokens int, temperature float64) (CompletionResult, error) {
	config := &genai.GenerateContentConfig{Tools: buildGenaiTools(tools)}
	if system != "" {
		config.SystemInstruction = &genai.Content{Role: "user", Parts: []*genai.Part{{Text: system}}}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if temperature > 0 {
		t := float32(temperature)
		config.Temperature = &t
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, g.buildContents(messages), config)
	if err != nil {
		return CompletionResult{}, apperr.WrapTransient(err, "llm: gemini generation failed")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return CompletionResult{}, apperr.Transient("llm: gemini returned no candidates")
	}

	var result CompletionResult
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.Text += part.Text
		}
		if part.FunctionCall != nil {
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID: part.FunctionCall.ID, Name: part.FunctionCall.Name, Input: part.FunctionCall.Args,
			})
		}
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

func (g *Gemini) Stream(ctx context.Context, system string, messages []Message, maxTokens int, temperature float64) (<-chan StreamEvent, error) {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Role: "user", Parts: []*genai.Part{{Text: system}}}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if temperature > 0 {
		t := float32(temperature)
		config.Temperature = &t
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		var outputTokens int
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, g.buildContents(messages), config) {
			if err != nil {
				events <- StreamEvent{Err: apperr.WrapTransient(err, "llm: gemini stream failed")}
				return
			}
			if resp.UsageMetadata != nil {
				outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					events <- StreamEvent{Text: part.Text}
				}
			}
		}
		events <- StreamEvent{Done: true, Usage: Usage{OutputTokens: outputTokens}}
	}()
	return events, nil
}

// DescribeImage implements extract.VisionDescriber.
func (g *Gemini) DescribeImage(ctx context.Context, imageBytes []byte, mediaType, prompt string) (string, error) {
	result, err := g.Complete(ctx, "", []Message{{
		Role:   RoleUser,
		Text:   prompt,
		Images: []ImageBlock{{MediaType: mediaType, Data: imageBytes}},
	}}, nil, 1024, 0)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
