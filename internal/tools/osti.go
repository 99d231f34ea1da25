// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

func registerOSTITools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "search_osti_documents",
		Description: "Search the local catalog of DOE technical reports and publications on critical minerals. Results are newest first.",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Description: "Substring match on title and description"},
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity category code",
				Enum: sources.OSTICommodities()},
			{Name: "product_type", Type: registry.TypeString, Description: "Document type",
				Enum: sources.OSTIProductTypes},
			{Name: "year_from", Type: registry.TypeInt, Description: "Earliest publication year", Min: registry.Bound(0)},
			{Name: "year_to", Type: registry.TypeInt, Description: "Latest publication year", Min: registry.Bound(0)},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum documents to return",
				Default: 50, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := d.OSTI.SearchDocuments(ctx, sources.OSTIQuery{
				Query:       stringArg(args, "query"),
				Commodity:   stringArg(args, "commodity"),
				ProductType: stringArg(args, "product_type"),
				YearFrom:    intArg(args, "year_from"),
				YearTo:      intArg(args, "year_to"),
				Limit:       intArg(args, "limit"),
			})
			if err != nil {
				return nil, err
			}
			return formatDocumentList(records), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_osti_document",
		Description: "Fetch one DOE document from the catalog by its OSTI identifier, with full details.",
		Params: []registry.Param{
			{Name: "osti_id", Type: registry.TypeString, Description: "OSTI document identifier", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rec, err := d.OSTI.GetDocument(ctx, stringArg(args, "osti_id"))
			if err != nil {
				return nil, err
			}
			return formatDocument(rec), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_documents_by_commodity",
		Description: "List DOE documents tagged with one commodity category, newest first.",
		Params: []registry.Param{
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity category code",
				Enum: sources.OSTICommodities(), Required: true},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum documents to return",
				Default: 50, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := d.OSTI.DocumentsByCommodity(ctx,
				stringArg(args, "commodity"), intArg(args, "limit"))
			if err != nil {
				return nil, err
			}
			return formatDocumentList(records), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_recent_documents",
		Description: "List the most recently published DOE documents in the catalog.",
		Params: []registry.Param{
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum documents to return",
				Default: 20, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := d.OSTI.RecentDocuments(ctx, intArg(args, "limit"))
			if err != nil {
				return nil, err
			}
			return formatDocumentList(records), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "list_osti_commodities",
		Description: "List the commodity category codes used by the DOE document catalog. No catalog access.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			codes := sources.OSTICommodities()
			var b strings.Builder
			fmt.Fprintf(&b, "%d commodity categories:\n", len(codes))
			for _, code := range codes {
				fmt.Fprintf(&b, "- %s: %s\n", code, sources.OSTICommodityCodes[code])
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_osti_overview",
		Description: "Summarize the DOE document catalog: counts by commodity and document type, and the publication year range.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			stats, err := d.OSTI.Statistics(ctx)
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d documents in the catalog", stats.Total)
			if stats.YearFrom != 0 {
				fmt.Fprintf(&b, " (%d-%d)", stats.YearFrom, stats.YearTo)
			}
			b.WriteString("\n\nBy commodity:\n")
			for _, code := range sortedKeys(stats.ByCommodity) {
				name := sources.OSTICommodityCodes[code]
				if name == "" {
					name = code
				}
				fmt.Fprintf(&b, "- %s (%s): %d\n", name, code, stats.ByCommodity[code])
			}
			b.WriteString("\nBy document type:\n")
			for _, pt := range sortedKeys(stats.ByProductType) {
				fmt.Fprintf(&b, "- %s: %d\n", pt, stats.ByProductType[pt])
			}
			return b.String(), nil
		},
	})
}

func formatDocumentList(records []types.Record) string {
	if len(records) == 0 {
		return "No documents matched the given filters."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d documents:\n", len(records))
	for _, rec := range records {
		date, _ := rec.TextField("publication_date")
		category, _ := rec.TextField("commodity_category")
		productType, _ := rec.TextField("product_type")
		fmt.Fprintf(&b, "\n- %s (OSTI %s)\n", rec.Title, rec.ID)
		if productType != "" || date != "" {
			fmt.Fprintf(&b, "  %s, %s\n", productType, date)
		}
		if category != "" {
			fmt.Fprintf(&b, "  Commodity: %s\n", category)
		}
	}
	return b.String()
}

func formatDocument(rec types.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nOSTI ID: %s\n", rec.Title, rec.ID)
	if len(rec.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(rec.Authors, ", "))
	}
	for _, field := range []struct{ label, key string }{
		{"Published", "publication_date"},
		{"Type", "product_type"},
		{"Commodity", "commodity_category"},
		{"DOI", "doi"},
		{"Subjects", "subjects"},
		{"Research orgs", "research_orgs"},
		{"Sponsor orgs", "sponsor_orgs"},
	} {
		if v, _ := rec.TextField(field.key); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", field.label, v)
		}
	}
	if desc, _ := rec.TextField("description"); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
