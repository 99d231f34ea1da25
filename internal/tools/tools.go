// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools declares the server's tool surface: each file registers
// the operations for one data source, with parameter declarations the
// dispatcher validates and handlers that render human-readable text.
package tools

import (
	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
	"github.com/pdiddy/cmm-toolserver/internal/workflow"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// Deps carries the wired clients every registration needs.
type Deps struct {
	Arxiv      *sources.ArxivClient
	BGS        *sources.BGSClient
	EDX        *sources.EDXClient
	Comtrade   *sources.ComtradeClient
	Scholar    *sources.ScholarClient
	OSTI       *sources.OSTIClient
	Summarizer *llm.Summarizer
	Composer   *workflow.Composer
	Creds      types.Credentials
}

// RegisterAll registers the full tool surface. Tools whose provider key
// is absent still register; they return AuthError when called, so the
// rest of the surface keeps working.
func RegisterAll(r *registry.Registry, d Deps) {
	registerPaperTools(r, d)
	registerScholarTools(r, d)
	registerMineralTools(r, d)
	registerDatasetTools(r, d)
	registerOSTITools(r, d)
	registerTradeTools(r, d)
}

// Argument accessors. The dispatcher has already validated and coerced
// everything, so missing optional values read as zero values.

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func intArg(args map[string]any, name string) int {
	v, _ := args[name].(int)
	return v
}

func boolArg(args map[string]any, name string) bool {
	v, _ := args[name].(bool)
	return v
}

func stringSliceArg(args map[string]any, name string) []string {
	v, _ := args[name].([]string)
	return v
}

// llmProviderParam is the shared declaration for tools that route text
// through a language model.
func llmProviderParam() registry.Param {
	return registry.Param{
		Name:        "llm_provider",
		Type:        registry.TypeString,
		Description: "Language model provider: openai, anthropic, or auto for the configured default",
		Enum:        []string{"openai", "anthropic", "auto"},
		Default:     "auto",
	}
}
