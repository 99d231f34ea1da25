// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pdiddy/cmm-toolserver/internal/httputil"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// anthropicAPIBase is the Anthropic API root. Declared as a var so tests
// can substitute an httptest server.
var anthropicAPIBase = "https://api.anthropic.com"

const anthropicAPIVersion = "2023-06-01"

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (s *Summarizer) completeAnthropic(ctx context.Context, instruction, text, model string, maxTokens int) (Summary, error) {
	payload := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    instruction,
		Messages: []anthropicMessage{
			{Role: "user", Content: text},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Summary{}, &types.ProviderError{Provider: "anthropic", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIBase+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Summary{}, &types.NetworkError{Source: "anthropic", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.anthropicKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	respBody, err := httputil.Do(ctx, s.client, nil, req, "anthropic")
	if err != nil {
		return Summary{}, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Summary{}, &types.ParseError{Source: "anthropic", Reason: "malformed messages response"}
	}

	// The first text block carries the summary.
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return Summary{}, &types.ProviderError{Provider: "anthropic", Reason: "response contains no text content"}
	}
	switch resp.StopReason {
	case "refusal":
		return Summary{}, &types.ProviderError{Provider: "anthropic", Reason: "model refused the request"}
	case "max_tokens":
		return Summary{}, &types.ProviderError{Provider: "anthropic", Reason: "response truncated at max_tokens"}
	}

	return Summary{
		Text:         content,
		Provider:     "anthropic",
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
