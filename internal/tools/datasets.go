// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

func registerDatasetTools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "search_claimm_data",
		Description: "Search NETL EDX for CLAIMM data resources by name, optionally filtered by file format.",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Description: "Resource name terms", Required: true},
			{Name: "format_filter", Type: registry.TypeString, Description: "File format, e.g. CSV, JSON, PDF"},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum resources to return",
				Default: 10, Min: registry.Bound(1), Max: registry.Bound(100)},
			{Name: "summarize", Type: registry.TypeBool, Description: "Add a language-model overview of the matches", Default: false},
			llmProviderParam(),
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query := stringArg(args, "query")
			records, count, err := d.EDX.SearchResources(ctx, query,
				stringArg(args, "format_filter"), intArg(args, "limit"), 0)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return fmt.Sprintf("No EDX resources matched %q.", query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Found %d EDX resources matching %q (showing %d):\n", count, query, len(records))
			for i, rec := range records {
				fmt.Fprintf(&b, "\n%d. %s\n", i+1, formatResource(rec))
			}

			if boolArg(args, "summarize") {
				summary, err := d.Summarizer.Summarize(ctx, llm.Request{
					Text:     b.String(),
					Provider: stringArg(args, "llm_provider"),
				})
				if err != nil {
					return nil, err
				}
				fmt.Fprintf(&b, "\nOverview (%s, %s):\n%s\n", summary.Provider, summary.Model, summary.Text)
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_dataset_details",
		Description: "Fetch one EDX dataset with its resource list.",
		Params: []registry.Param{
			{Name: "dataset_id", Type: registry.TypeString, Description: "Dataset (package) id or name", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			dataset, resources, err := d.EDX.GetDataset(ctx, stringArg(args, "dataset_id"))
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Dataset: %s\nID: %s\n", dataset.Title, dataset.ID)
			if desc, ok := dataset.TextField("description"); ok && desc != "" {
				fmt.Fprintf(&b, "Description: %s\n", desc)
			}
			if tags, ok := dataset.TextField("tags"); ok && tags != "" {
				fmt.Fprintf(&b, "Tags: %s\n", tags)
			}
			fmt.Fprintf(&b, "\n%d resources:\n", len(resources))
			for i, rec := range resources {
				fmt.Fprintf(&b, "\n%d. %s\n", i+1, formatResource(rec))
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_resource_details",
		Description: "Fetch one EDX resource by id.",
		Params: []registry.Param{
			{Name: "resource_id", Type: registry.TypeString, Description: "Resource id", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rec, err := d.EDX.GetResource(ctx, stringArg(args, "resource_id"))
			if err != nil {
				return nil, err
			}
			return formatResource(rec), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "ask_about_data",
		Description: "Ask a question about one EDX resource. The model answers only from the resource's metadata.",
		Params: []registry.Param{
			{Name: "resource_id", Type: registry.TypeString, Description: "Resource id", Required: true},
			{Name: "question", Type: registry.TypeString, Description: "The question to answer", Required: true},
			llmProviderParam(),
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rec, err := d.EDX.GetResource(ctx, stringArg(args, "resource_id"))
			if err != nil {
				return nil, err
			}

			answer, err := d.Summarizer.Answer(ctx,
				stringArg(args, "question"), formatResource(rec),
				llm.Request{Provider: stringArg(args, "llm_provider")})
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("Question about resource %s: %s\n\n%s\n\n(answered by %s, %s)",
				rec.ID, stringArg(args, "question"), answer.Text, answer.Provider, answer.Model), nil
		},
	})
}

// formatResource renders one EDX resource's metadata block.
func formatResource(rec types.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nID: %s\n", rec.Title, rec.ID)
	if format, ok := rec.TextField("format"); ok && format != "" {
		fmt.Fprintf(&b, "Format: %s\n", format)
	}
	if size, ok := rec.StatField("size_bytes"); ok {
		fmt.Fprintf(&b, "Size: %.0f bytes\n", size)
	}
	if u, ok := rec.TextField("url"); ok && u != "" {
		fmt.Fprintf(&b, "URL: %s\n", u)
	}
	if pkg, ok := rec.TextField("package_id"); ok && pkg != "" {
		fmt.Fprintf(&b, "Dataset: %s\n", pkg)
	}
	if desc, ok := rec.TextField("description"); ok && desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	return strings.TrimRight(b.String(), "\n")
}
