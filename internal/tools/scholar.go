// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
)

func registerScholarTools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "search_scholar",
		Description: "Search Google Scholar for academic literature, optionally bounded by publication year.",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Description: "Search terms", Required: true},
			{Name: "year_from", Type: registry.TypeInt, Description: "Earliest publication year", Min: registry.Bound(0)},
			{Name: "year_to", Type: registry.TypeInt, Description: "Latest publication year", Min: registry.Bound(0)},
			{Name: "num_results", Type: registry.TypeInt, Description: "Number of results to return",
				Default: 10, Min: registry.Bound(1), Max: registry.Bound(20)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query := stringArg(args, "query")
			records, err := d.Scholar.Search(ctx, query,
				intArg(args, "year_from"), intArg(args, "year_to"), intArg(args, "num_results"))
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return fmt.Sprintf("No Scholar results for query: %q", query), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Found %d Scholar results for %q:\n", len(records), query)
			for i, rec := range records {
				fmt.Fprintf(&b, "\n%d. %s\n", i+1, rec.Title)
				if pub, ok := rec.TextField("publication"); ok && pub != "" {
					fmt.Fprintf(&b, "   %s\n", pub)
				}
				if cited, ok := rec.StatField("cited_by"); ok {
					fmt.Fprintf(&b, "   Cited by: %.0f\n", cited)
				}
				if link, ok := rec.TextField("link"); ok && link != "" {
					fmt.Fprintf(&b, "   Link: %s\n", link)
				}
				if snippet, ok := rec.TextField("snippet"); ok && snippet != "" {
					fmt.Fprintf(&b, "   %s\n", snippet)
				}
			}
			return b.String(), nil
		},
	})
}
