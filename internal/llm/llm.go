// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm summarizes text through hosted language-model APIs. Two
// providers are supported, OpenAI chat completions and Anthropic
// messages. Requests are single-shot: a failed call surfaces its typed
// error to the caller instead of retrying.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// summarizeInstruction is the fixed summarization directive sent with
// every summarize request, regardless of provider.
const summarizeInstruction = "Summarize the following text concisely for a technical reader. " +
	"Keep key findings, numbers, and named entities. Do not add information not present in the text."

// answerInstruction directs the model to answer strictly from the
// supplied context.
const answerInstruction = "Answer the question using only the provided context. " +
	"If the context does not contain the answer, say so plainly instead of guessing."

// Summarizer produces summaries via a configured provider.
type Summarizer struct {
	client       *http.Client
	cfg          types.LLMConfig
	openaiKey    string
	anthropicKey string
	log          zerolog.Logger
}

// NewSummarizer builds a Summarizer. Missing keys are allowed at
// construction; a call routed to a keyless provider fails with AuthError
// before any request.
func NewSummarizer(cfg types.LLMConfig, creds types.Credentials, log zerolog.Logger) *Summarizer {
	return &Summarizer{
		client:       &http.Client{Timeout: cfg.Timeout},
		cfg:          cfg,
		openaiKey:    creds.OpenAIKey,
		anthropicKey: creds.AnthropicKey,
		log:          log.With().Str("component", "llm").Logger(),
	}
}

// Request selects the text to summarize and how. Provider and Model may
// be empty or "auto"; the configured defaults fill them in.
type Request struct {
	Text      string
	Provider  string
	Model     string
	MaxTokens int
}

// Summary is a completed summarization with its provenance.
type Summary struct {
	Text         string `json:"text"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Summarize routes the request to the resolved provider. Validation and
// credential checks run before any network traffic.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (Summary, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Summary{}, &types.ValidationError{Param: "text", Reason: "must not be empty"}
	}
	return s.complete(ctx, summarizeInstruction, req)
}

// Answer poses a question against the supplied context text. The model
// is instructed not to reach beyond that context.
func (s *Summarizer) Answer(ctx context.Context, question, contextText string, req Request) (Summary, error) {
	if strings.TrimSpace(question) == "" {
		return Summary{}, &types.ValidationError{Param: "question", Reason: "must not be empty"}
	}
	req.Text = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
	return s.complete(ctx, answerInstruction, req)
}

func (s *Summarizer) complete(ctx context.Context, instruction string, req Request) (Summary, error) {
	provider, err := s.resolveProvider(req.Provider)
	if err != nil {
		return Summary{}, err
	}
	model := s.resolveModel(provider, req.Model)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.cfg.MaxTokens
	}

	s.log.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("text_len", len(req.Text)).
		Msg("completion request")

	switch provider {
	case types.ProviderOpenAI:
		if s.openaiKey == "" {
			return Summary{}, &types.AuthError{Provider: "openai", Reason: "OPENAI_API_KEY is not configured"}
		}
		return s.completeOpenAI(ctx, instruction, req.Text, model, maxTokens)
	case types.ProviderAnthropic:
		if s.anthropicKey == "" {
			return Summary{}, &types.AuthError{Provider: "anthropic", Reason: "ANTHROPIC_API_KEY is not configured"}
		}
		return s.completeAnthropic(ctx, instruction, req.Text, model, maxTokens)
	default:
		return Summary{}, &types.ValidationError{
			Param:  "provider",
			Reason: fmt.Sprintf("unknown provider %q", provider),
		}
	}
}

func (s *Summarizer) resolveProvider(name string) (types.LLMProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return s.cfg.DefaultProvider, nil
	case string(types.ProviderOpenAI):
		return types.ProviderOpenAI, nil
	case string(types.ProviderAnthropic):
		return types.ProviderAnthropic, nil
	default:
		return "", &types.ValidationError{
			Param:  "provider",
			Reason: fmt.Sprintf("must be openai, anthropic, or auto, not %q", name),
		}
	}
}

func (s *Summarizer) resolveModel(provider types.LLMProvider, model string) string {
	m := strings.TrimSpace(model)
	if m != "" && !strings.EqualFold(m, "auto") {
		return m
	}
	if provider == types.ProviderAnthropic {
		return s.cfg.AnthropicModel
	}
	return s.cfg.OpenAIModel
}
