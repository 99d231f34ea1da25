// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves provider API keys from the process environment.
// Each provider has one named variable. Keys are read once at startup into
// an immutable Credentials value that is passed into client constructors;
// request-handling code never looks credentials up at runtime.
//
// A local .env file, when present, is loaded into the environment first so
// development setups match the originals' dotenv convention. Variables
// already set in the environment win over .env entries.
package secrets

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// Environment variable names, one per provider.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvEDXKey       = "EDX_API_KEY"
	EnvSerpAPIKey   = "SERPAPI_API_KEY"
	EnvComtradeKey  = "UNCOMTRADE_API_KEY"
)

// Load resolves all provider credentials. A missing .env file is not an
// error; a missing variable leaves the corresponding field empty, which
// disables only the features that need it.
func Load(dotenvPath string) (types.Credentials, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return types.Credentials{}, err
			}
		}
	}

	return types.Credentials{
		OpenAIKey:    getenv(EnvOpenAIKey),
		AnthropicKey: getenv(EnvAnthropicKey),
		EDXKey:       getenv(EnvEDXKey),
		SerpAPIKey:   getenv(EnvSerpAPIKey),
		ComtradeKey:  getenv(EnvComtradeKey),
	}, nil
}

// Configured returns the names of the variables that resolved to a value,
// for startup logging. Values are never logged.
func Configured(creds types.Credentials) []string {
	var names []string
	if creds.OpenAIKey != "" {
		names = append(names, EnvOpenAIKey)
	}
	if creds.AnthropicKey != "" {
		names = append(names, EnvAnthropicKey)
	}
	if creds.EDXKey != "" {
		names = append(names, EnvEDXKey)
	}
	if creds.SerpAPIKey != "" {
		names = append(names, EnvSerpAPIKey)
	}
	if creds.ComtradeKey != "" {
		names = append(names, EnvComtradeKey)
	}
	return names
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
