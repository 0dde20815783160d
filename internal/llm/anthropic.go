package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/httpclient"
)

// Anthropic is an LLM adapter for Claude's Messages API. Grounded on
// llms/anthropic.go's request/response shapes and SSE parsing, rebuilt
// against the Message/ToolDefinition types of this package.
type Anthropic struct {
	http      *httpclient.Client
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
}

// NewAnthropic builds an Anthropic adapter. model is a full model ID
// (e.g. "claude-3-5-sonnet-20241022").
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
		),
		apiKey:    apiKey,
		baseURL:   "https://api.anthropic.com",
		model:     model,
		maxTokens: 4096,
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     *map[string]any `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Source    *anthropicImage `json:"source,omitempty"`
}

type anthropicImage struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
	StopReason string             `json:"stop_reason"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicStreamEvent struct {
	Type         string             `json:"type"`
	Index        int                `json:"index"`
	Delta        *anthropicDelta    `json:"delta,omitempty"`
	ContentBlock *anthropicContent  `json:"content_block,omitempty"`
	Usage        *anthropicUsage    `json:"usage,omitempty"`
	Message      *anthropicResponse `json:"message,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

func (a *Anthropic) buildRequest(system string, messages []Message, tools []ToolDefinition, stream bool, maxTokens int, temperature float64) anthropicRequest {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleTool:
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Text,
				}},
			})
		case RoleAssistant:
			contents := []anthropicContent{}
			if m.Text != "" {
				contents = append(contents, anthropicContent{Type: "text", Text: m.Text})
			}
			if m.ToolCall != nil {
				input := m.ToolCall.Input
				if input == nil {
					input = make(map[string]any)
				}
				contents = append(contents, anthropicContent{
					Type:  "tool_use",
					ID:    m.ToolCall.ID,
					Name:  m.ToolCall.Name,
					Input: &input,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: contents})
		case RoleUser:
			contents := []anthropicContent{{Type: "text", Text: m.Text}}
			for _, img := range m.Images {
				contents = append(contents, anthropicContent{
					Type: "image",
					Source: &anthropicImage{
						Type:      "base64",
						MediaType: img.MediaType,
						Data:      base64.StdEncoding.EncodeToString(img.Data),
					},
				})
			}
			out = append(out, anthropicMessage{Role: "user", Content: contents})
		}
	}

	req := anthropicRequest{
		Model:       a.model,
		Messages:    out,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
		System:      system,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
	if len(tools) > 0 {
		req.Tools = make([]anthropicTool, len(tools))
		for i, t := range tools {
			req.Tools[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
		}
	}
	return req
}

func (a *Anthropic) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build anthropic request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	return req, nil
}

func (a *Anthropic) Complete(ctx context.Context, system string, messages []Message, tools []ToolDefinition, maxTokens int, temperature float64) (CompletionResult, error) {
	reqBody := a.buildRequest(system, messages, tools, false, maxTokens, temperature)
	body, err := json.Marshal(reqBody)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("llm: marshal anthropic request: %w", err)
	}

	httpReq, err := a.newHTTPRequest(ctx, body)
	if err != nil {
		return CompletionResult{}, err
	}

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return CompletionResult{}, apperr.WrapTransient(err, "llm: anthropic request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompletionResult{}, mapAnthropicStatus(resp.StatusCode)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CompletionResult{}, fmt.Errorf("llm: decode anthropic response: %w", err)
	}
	if out.Error != nil {
		return CompletionResult{}, apperr.Permanent("llm: anthropic error: %s", out.Error.Message)
	}

	result := CompletionResult{Usage: Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens}}
	for _, c := range out.Content {
		switch c.Type {
		case "text":
			result.Text += c.Text
		case "tool_use":
			var input map[string]any
			if c.Input != nil {
				input = *c.Input
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{ID: c.ID, Name: c.Name, Input: input})
		}
	}
	return result, nil
}

func (a *Anthropic) Stream(ctx context.Context, system string, messages []Message, maxTokens int, temperature float64) (<-chan StreamEvent, error) {
	reqBody := a.buildRequest(system, messages, nil, true, maxTokens, temperature)
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal anthropic request: %w", err)
	}

	httpReq, err := a.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, apperr.WrapTransient(err, "llm: anthropic stream request failed")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, mapAnthropicStatus(resp.StatusCode)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		var totalOutputTokens int
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			var evt anthropicStreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				events <- StreamEvent{Err: fmt.Errorf("llm: decode anthropic stream event: %w", err)}
				return
			}

			switch evt.Type {
			case "content_block_delta":
				if evt.Delta != nil && evt.Delta.Text != "" {
					events <- StreamEvent{Text: evt.Delta.Text}
				}
			case "message_delta":
				if evt.Usage != nil {
					totalOutputTokens = evt.Usage.OutputTokens
				}
			case "message_stop":
				events <- StreamEvent{Done: true, Usage: Usage{OutputTokens: totalOutputTokens}}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			events <- StreamEvent{Err: fmt.Errorf("llm: read anthropic stream: %w", err)}
		}
	}()

	return events, nil
}

// DescribeImage implements extract.VisionDescriber.
func (a *Anthropic) DescribeImage(ctx context.Context, imageBytes []byte, mediaType, prompt string) (string, error) {
	result, err := a.Complete(ctx, "", []Message{{
		Role:   RoleUser,
		Text:   prompt,
		Images: []ImageBlock{{MediaType: mediaType, Data: imageBytes}},
	}}, nil, 1024, 0)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func mapAnthropicStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound("llm: anthropic returned 404")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Auth("llm: anthropic returned %d", status)
	case status == http.StatusTooManyRequests:
		return apperr.Transient("llm: anthropic rate limited")
	case status >= 500:
		return apperr.Transient("llm: anthropic returned HTTP %d", status)
	default:
		return apperr.Permanent("llm: anthropic returned HTTP %d", status)
	}
}
