// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

func registerPaperTools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "search_arxiv",
		Description: "Search arXiv for papers matching a query. Field prefixes (ti:, au:, abs:, cat:) are passed through; bare terms search all fields.",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Description: "Search terms", Required: true},
			{Name: "max_results", Type: registry.TypeInt, Description: "Number of results to return",
				Default: 10, Min: registry.Bound(1), Max: registry.Bound(100)},
			{Name: "sort_by", Type: registry.TypeString, Description: "Result ordering",
				Enum: sources.ArxivSortOrders, Default: "relevance"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query := stringArg(args, "query")
			records, err := d.Arxiv.Search(ctx, query, intArg(args, "max_results"), stringArg(args, "sort_by"))
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return fmt.Sprintf("No papers found matching query: %q", query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Found %d papers matching %q:\n", len(records), query)
			for i, rec := range records {
				fmt.Fprintf(&b, "\n%d. %s", i+1, formatPaperBrief(rec))
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_arxiv_paper",
		Description: "Fetch full details for one arXiv paper by identifier, e.g. 2301.07041.",
		Params: []registry.Param{
			{Name: "arxiv_id", Type: registry.TypeString, Description: "arXiv identifier", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rec, err := d.Arxiv.GetByID(ctx, stringArg(args, "arxiv_id"))
			if err != nil {
				return nil, err
			}
			return formatPaperFull(rec), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "summarize_paper_with_llm",
		Description: "Fetch an arXiv paper and summarize it with a language model.",
		Params: []registry.Param{
			{Name: "arxiv_id", Type: registry.TypeString, Description: "arXiv identifier", Required: true},
			llmProviderParam(),
			{Name: "model", Type: registry.TypeString, Description: "Model name, or auto for the provider default", Default: "auto"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rec, err := d.Arxiv.GetByID(ctx, stringArg(args, "arxiv_id"))
			if err != nil {
				return nil, err
			}
			abstract, _ := rec.TextField("abstract")
			text := fmt.Sprintf("Title: %s\nAuthors: %s\n\nAbstract:\n%s",
				rec.Title, strings.Join(rec.Authors, ", "), abstract)

			summary, err := d.Summarizer.Summarize(ctx, llm.Request{
				Text:     text,
				Provider: stringArg(args, "llm_provider"),
				Model:    stringArg(args, "model"),
			})
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("Summary of arXiv paper %s\nGenerated using: %s (%s)\n\n%s\n\n---\nOriginal paper: https://arxiv.org/abs/%s",
				rec.ID, summary.Provider, summary.Model, summary.Text, rec.ID), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "search_and_summarize",
		Description: "Search arXiv and summarize the top papers in one step.",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Description: "Search terms", Required: true},
			{Name: "max_papers", Type: registry.TypeInt, Description: "How many top papers to summarize",
				Default: 3, Min: registry.Bound(1), Max: registry.Bound(5)},
			llmProviderParam(),
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			result, err := d.Composer.SearchAndSummarize(ctx,
				stringArg(args, "query"), intArg(args, "max_papers"), stringArg(args, "llm_provider"), "")
			if err != nil {
				return nil, err
			}
			if len(result.Items) == 0 {
				return fmt.Sprintf("No papers found matching query: %q", result.Query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Summaries for the top %d papers matching %q:\n", len(result.Items), result.Query)
			for i, item := range result.Items {
				fmt.Fprintf(&b, "\n%d. %s (arXiv:%s)\n", i+1, item.Record.Title, item.Record.ID)
				if item.Summary != nil {
					fmt.Fprintf(&b, "%s\n", item.Summary.Text)
				} else {
					fmt.Fprintf(&b, "Summary unavailable: %s\n", item.ErrText)
				}
			}
			return b.String(), nil
		},
	})
}

// formatPaperBrief renders one search hit: truncated abstract, at most
// three authors and categories.
func formatPaperBrief(rec types.Record) string {
	authors := rec.Authors
	suffix := ""
	if len(authors) > 3 {
		suffix = fmt.Sprintf(" et al. (%d total)", len(authors))
		authors = authors[:3]
	}

	abstract := truncateText(rec.Text["abstract"], 300)
	published, _ := rec.TextField("published")
	categories, _ := rec.TextField("categories")
	pdf, _ := rec.TextField("pdf_url")

	return fmt.Sprintf("Title: %s\nArXiv ID: %s\nAuthors: %s%s\nPublished: %s\nCategories: %s\nPDF: %s\nAbstract: %s\n",
		rec.Title, rec.ID, strings.Join(authors, ", "), suffix, published, categories, pdf, abstract)
}

// truncateText cuts s to at most max bytes without splitting a UTF-8
// rune, appending an ellipsis when anything was cut.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// formatPaperFull renders one paper with the complete abstract and
// author list.
func formatPaperFull(rec types.Record) string {
	abstract, _ := rec.TextField("abstract")
	published, _ := rec.TextField("published")
	categories, _ := rec.TextField("categories")
	pdf, _ := rec.TextField("pdf_url")

	return fmt.Sprintf("Title: %s\n\nArXiv ID: %s\n\nAuthors: %s\n\nPublished: %s\n\nCategories: %s\n\nPDF URL: %s\n\nAbstract:\n%s\n",
		rec.Title, rec.ID, strings.Join(rec.Authors, ", "), published, categories, pdf, abstract)
}
