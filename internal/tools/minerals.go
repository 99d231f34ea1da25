// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
)

func registerMineralTools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "list_commodities",
		Description: "List commodities available in the BGS World Mineral Statistics data. With critical_only the curated critical-minerals list is returned without a network call.",
		Params: []registry.Param{
			{Name: "critical_only", Type: registry.TypeBool, Description: "Restrict to critical minerals", Default: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			criticalOnly := boolArg(args, "critical_only")
			names, err := d.BGS.Commodities(ctx, criticalOnly)
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			if criticalOnly {
				fmt.Fprintf(&b, "%d critical-mineral commodities:\n", len(names))
			} else {
				fmt.Fprintf(&b, "%d commodities in the dataset:\n", len(names))
			}
			for _, name := range names {
				fmt.Fprintf(&b, "- %s\n", name)
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "search_production",
		Description: "Search BGS world mineral statistics by commodity, country, and year range. Results are newest first.",
		Params: []registry.Param{
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity name, e.g. \"lithium minerals\""},
			{Name: "country", Type: registry.TypeString, Description: "Country name"},
			{Name: "country_iso", Type: registry.TypeString, Description: "Two- or three-letter ISO country code"},
			{Name: "year_from", Type: registry.TypeInt, Description: "Earliest year", Min: registry.Bound(0)},
			{Name: "year_to", Type: registry.TypeInt, Description: "Latest year", Min: registry.Bound(0)},
			{Name: "statistic_type", Type: registry.TypeString, Description: "Statistic kind",
				Enum: sources.BGSStatisticTypes, Default: "Production"},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum records to return",
				Default: 100, Min: registry.Bound(1), Max: registry.Bound(5000)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := d.BGS.SearchProduction(ctx, sources.BGSFilter{
				Commodity:     stringArg(args, "commodity"),
				Country:       stringArg(args, "country"),
				CountryISO:    stringArg(args, "country_iso"),
				YearFrom:      intArg(args, "year_from"),
				YearTo:        intArg(args, "year_to"),
				StatisticType: stringArg(args, "statistic_type"),
				Limit:         intArg(args, "limit"),
			})
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return "No mineral statistics matched the given filters.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d mineral statistics records:\n", len(records))
			for _, rec := range records {
				country, _ := rec.TextField("country")
				commodity, _ := rec.TextField("commodity")
				units, _ := rec.TextField("units")
				stat, _ := rec.TextField("statistic_type")
				year, _ := rec.StatField("year")
				qty, hasQty := rec.StatField("quantity")
				if hasQty {
					fmt.Fprintf(&b, "- %s, %s %.0f: %s %s %s\n", commodity, stat, year, country, formatQuantity(qty), units)
				} else {
					fmt.Fprintf(&b, "- %s, %s %.0f: %s (no quantity reported)\n", commodity, stat, year, country)
				}
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_commodity_ranking",
		Description: "Rank producing countries for a commodity in one year, with each country's share of the total.",
		Params: []registry.Param{
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity name", Required: true},
			{Name: "year", Type: registry.TypeInt, Description: "Target year; omit for the most recent year with data", Min: registry.Bound(0)},
			{Name: "top_n", Type: registry.TypeInt, Description: "How many countries to include",
				Default: 10, Min: registry.Bound(1), Max: registry.Bound(50)},
			{Name: "statistic_type", Type: registry.TypeString, Description: "Statistic kind",
				Enum: sources.BGSStatisticTypes, Default: "Production"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			commodity := stringArg(args, "commodity")
			entries, err := d.BGS.Ranking(ctx, commodity,
				intArg(args, "year"), intArg(args, "top_n"), stringArg(args, "statistic_type"))
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				return fmt.Sprintf("No ranking data for %q.", commodity), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Top %d for %s (%s, %d):\n", len(entries), commodity,
				stringArg(args, "statistic_type"), entries[0].Year)
			for _, e := range entries {
				iso := ""
				if e.ISO3 != "" {
					iso = " (" + e.ISO3 + ")"
				}
				fmt.Fprintf(&b, "%d. %s%s: %s %s (%.2f%% of total)\n",
					e.Rank, e.Entity, iso, formatQuantity(e.Value), e.Units, e.SharePercent)
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_time_series",
		Description: "Yearly totals for one commodity, with year-over-year change. Without a country the series aggregates all producers.",
		Params: []registry.Param{
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity name", Required: true},
			{Name: "country", Type: registry.TypeString, Description: "Country name or ISO code; omit for the global total"},
			{Name: "statistic_type", Type: registry.TypeString, Description: "Statistic kind",
				Enum: sources.BGSStatisticTypes, Default: "Production"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			commodity := stringArg(args, "commodity")
			points, country, err := d.BGS.TimeSeries(ctx, commodity,
				stringArg(args, "country"), stringArg(args, "statistic_type"))
			if err != nil {
				return nil, err
			}
			if len(points) == 0 {
				return fmt.Sprintf("No time series data for %q.", commodity), nil
			}

			scope := "all countries"
			if country != "" {
				scope = country
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s (%s, %s), %d-%d:\n", commodity,
				stringArg(args, "statistic_type"), scope,
				points[0].Year, points[len(points)-1].Year)
			for i, p := range points {
				fmt.Fprintf(&b, "  %d: %s %s", p.Year, formatQuantity(p.Quantity), p.Units)
				if i > 0 && points[i-1].Quantity != 0 {
					change := (p.Quantity - points[i-1].Quantity) / points[i-1].Quantity * 100
					fmt.Fprintf(&b, " (%+.1f%%)", change)
				}
				b.WriteByte('\n')
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_country_profile",
		Description: "Every commodity a country reports for one year, largest quantity first.",
		Params: []registry.Param{
			{Name: "country", Type: registry.TypeString, Description: "Country name or ISO code", Required: true},
			{Name: "year", Type: registry.TypeInt, Description: "Target year; omit for the most recent year with data", Min: registry.Bound(0)},
			{Name: "statistic_type", Type: registry.TypeString, Description: "Statistic kind",
				Enum: sources.BGSStatisticTypes, Default: "Production"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			country := stringArg(args, "country")
			entries, resolved, year, err := d.BGS.CountryProfile(ctx, country,
				intArg(args, "year"), stringArg(args, "statistic_type"))
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				return fmt.Sprintf("No mineral statistics for %q.", country), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s mineral profile (%s, %d), %d commodities:\n",
				resolved, stringArg(args, "statistic_type"), year, len(entries))
			for _, e := range entries {
				fmt.Fprintf(&b, "- %s: %s %s\n", e.Commodity, formatQuantity(e.Quantity), e.Units)
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "compare_countries",
		Description: "Compare production of one commodity across countries over time. Countries with no data keep their slot with an empty series.",
		Params: []registry.Param{
			{Name: "commodity", Type: registry.TypeString, Description: "Commodity name", Required: true},
			{Name: "countries", Type: registry.TypeStringSlice, Description: "Country names or ISO codes", Required: true},
			{Name: "year_from", Type: registry.TypeInt, Description: "Earliest year", Min: registry.Bound(0)},
			{Name: "year_to", Type: registry.TypeInt, Description: "Latest year", Min: registry.Bound(0)},
			{Name: "statistic_type", Type: registry.TypeString, Description: "Statistic kind",
				Enum: sources.BGSStatisticTypes, Default: "Production"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			commodity := stringArg(args, "commodity")
			series, err := d.BGS.CompareCountries(ctx, commodity,
				stringSliceArg(args, "countries"),
				intArg(args, "year_from"), intArg(args, "year_to"),
				stringArg(args, "statistic_type"))
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s (%s) by country:\n", commodity, stringArg(args, "statistic_type"))
			for _, s := range series {
				fmt.Fprintf(&b, "\n%s:\n", s.Country)
				if len(s.Points) == 0 {
					b.WriteString("  no data\n")
					continue
				}
				for _, p := range s.Points {
					fmt.Fprintf(&b, "  %d: %s %s\n", p.Year, formatQuantity(p.Quantity), p.Units)
				}
			}
			return b.String(), nil
		},
	})
}

// formatQuantity renders a numeric field exactly as parsed: the shortest
// decimal form that round-trips, so whole tonnages print without a
// decimal point and fractional values keep their full precision.
func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
