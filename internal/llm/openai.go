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

// openaiAPIBase is the OpenAI API root. Declared as a var so tests can
// substitute an httptest server.
var openaiAPIBase = "https://api.openai.com/v1"

type openaiChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (s *Summarizer) completeOpenAI(ctx context.Context, instruction, text, model string, maxTokens int) (Summary, error) {
	payload := openaiChatRequest{
		Model: model,
		Messages: []openaiMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
		MaxTokens: maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Summary{}, &types.ProviderError{Provider: "openai", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Summary{}, &types.NetworkError{Source: "openai", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.openaiKey)

	respBody, err := httputil.Do(ctx, s.client, nil, req, "openai")
	if err != nil {
		return Summary{}, err
	}

	var resp openaiChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Summary{}, &types.ParseError{Source: "openai", Reason: "malformed chat completion"}
	}
	if len(resp.Choices) == 0 {
		return Summary{}, &types.ProviderError{Provider: "openai", Reason: "response contains no choices"}
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return Summary{}, &types.ProviderError{Provider: "openai", Reason: "empty completion content"}
	}
	switch choice.FinishReason {
	case "content_filter":
		return Summary{}, &types.ProviderError{Provider: "openai", Reason: "completion blocked by content filter"}
	case "length":
		return Summary{}, &types.ProviderError{Provider: "openai", Reason: "completion truncated at max_tokens"}
	}

	return Summary{
		Text:         choice.Message.Content,
		Provider:     "openai",
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
