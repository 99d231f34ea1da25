// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "cmm-toolserver/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ArxivConfig holds settings for the arXiv source client.
type ArxivConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the hard ceiling on results per search (arXiv caps at 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// MinRequestInterval is the minimum spacing between arXiv API calls.
	// arXiv asks clients for roughly one request every three seconds.
	MinRequestInterval time.Duration `json:"min_request_interval" yaml:"min_request_interval" mapstructure:"min_request_interval"`
}

// BGSConfig holds settings for the BGS World Mineral Statistics client.
type BGSConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PageLimit is the per-request item limit against the OGC Features API.
	PageLimit int `json:"page_limit" yaml:"page_limit" mapstructure:"page_limit"`

	// MaxRecords is the ceiling on records fetched for one search.
	MaxRecords int `json:"max_records" yaml:"max_records" mapstructure:"max_records"`
}

// EDXConfig holds settings for the NETL EDX (CKAN) client.
type EDXConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the ceiling on resources per search.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ComtradeConfig holds settings for the UN Comtrade client.
type ComtradeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxRecords is the ceiling on trade rows per query.
	MaxRecords int `json:"max_records" yaml:"max_records" mapstructure:"max_records"`
}

// ScholarConfig holds settings for the Google Scholar (SerpAPI) client.
type ScholarConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the ceiling on results per search (SerpAPI pages at 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// OSTIConfig holds settings for the OSTI document catalog client. The
// catalog is a local JSON snapshot of DOE technical reports; there is no
// public API behind it.
type OSTIConfig struct {
	// DataPath is the directory holding document_catalog.json. When empty
	// the OSTI_DATA_PATH environment variable is consulted.
	DataPath string `json:"data_path" yaml:"data_path" mapstructure:"data_path"`

	// MaxResults is the ceiling on documents per search.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LLMProvider selects a summarization provider.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMConfig holds settings for the summarization client.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DefaultProvider is used when a tool call omits the provider.
	DefaultProvider LLMProvider `json:"default_provider" yaml:"default_provider" mapstructure:"default_provider"`

	// OpenAIModel is the model used for provider "openai" when the call
	// passes "auto" or no model.
	OpenAIModel string `json:"openai_model" yaml:"openai_model" mapstructure:"openai_model"`

	// AnthropicModel is the model used for provider "anthropic" when the
	// call passes "auto" or no model.
	AnthropicModel string `json:"anthropic_model" yaml:"anthropic_model" mapstructure:"anthropic_model"`

	// MaxTokens bounds the generated summary length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Credentials holds provider API keys resolved once at startup. Absence
// of an optional credential disables only the features that need it.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
	EDXKey       string
	SerpAPIKey   string
	ComtradeKey  string
}

// Config groups all client configurations for the tool server.
type Config struct {
	Arxiv    ArxivConfig    `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	BGS      BGSConfig      `json:"bgs" yaml:"bgs" mapstructure:"bgs"`
	EDX      EDXConfig      `json:"edx" yaml:"edx" mapstructure:"edx"`
	Comtrade ComtradeConfig `json:"comtrade" yaml:"comtrade" mapstructure:"comtrade"`
	Scholar  ScholarConfig  `json:"scholar" yaml:"scholar" mapstructure:"scholar"`
	OSTI     OSTIConfig     `json:"osti" yaml:"osti" mapstructure:"osti"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
}

// DefaultConfig returns the configuration used when no config file or
// environment override is present.
func DefaultConfig() Config {
	ua := "cmm-toolserver/0.1"
	return Config{
		Arxiv: ArxivConfig{
			HTTPConfig:         HTTPConfig{Timeout: 30 * time.Second, UserAgent: ua},
			MaxResults:         100,
			MinRequestInterval: 3 * time.Second,
		},
		BGS: BGSConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: ua},
			PageLimit:  1000,
			MaxRecords: 5000,
		},
		EDX: EDXConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: ua},
			MaxResults: 100,
		},
		Comtrade: ComtradeConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: ua},
			MaxRecords: 500,
		},
		Scholar: ScholarConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: ua},
			MaxResults: 20,
		},
		OSTI: OSTIConfig{
			MaxResults: 500,
		},
		LLM: LLMConfig{
			HTTPConfig:      HTTPConfig{Timeout: 60 * time.Second, UserAgent: ua},
			DefaultProvider: ProviderOpenAI,
			OpenAIModel:     "gpt-4o",
			AnthropicModel:  "claude-sonnet-4-20250514",
			MaxTokens:       1000,
		},
	}
}
