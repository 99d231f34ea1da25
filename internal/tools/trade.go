// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
)

func registerTradeTools(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "get_trade_data",
		Description: "Fetch UN Comtrade annual goods trade for a reporter country. Reporter and partner are numeric UN codes (842 = USA, 0 = world).",
		Params: []registry.Param{
			{Name: "reporter", Type: registry.TypeString, Description: "Reporter country code", Required: true},
			{Name: "partner", Type: registry.TypeString, Description: "Partner country code", Default: "0"},
			{Name: "commodity", Type: registry.TypeString, Description: "HS commodity code", Default: "TOTAL"},
			{Name: "flow", Type: registry.TypeString, Description: "Trade flow",
				Enum: sources.ComtradeFlows, Default: "M"},
			{Name: "period", Type: registry.TypeString, Description: "Year or comma-separated years", Default: "2023"},
			{Name: "max_records", Type: registry.TypeInt, Description: "Maximum rows to return",
				Default: 500, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := d.Comtrade.TradeData(ctx, sources.TradeQuery{
				Reporter:   stringArg(args, "reporter"),
				Partner:    stringArg(args, "partner"),
				Commodity:  stringArg(args, "commodity"),
				Flow:       stringArg(args, "flow"),
				Period:     stringArg(args, "period"),
				MaxRecords: intArg(args, "max_records"),
			})
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return "No trade rows matched the query.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d trade rows:\n", len(records))
			for _, rec := range records {
				partner, _ := rec.TextField("partner")
				fmt.Fprintf(&b, "\n- %s\n  Partner: %s\n", rec.Title, partner)
				if v, ok := rec.StatField("trade_value_usd"); ok {
					fmt.Fprintf(&b, "  Value: %s USD\n", formatQuantity(v))
				}
				if w, ok := rec.StatField("net_weight_kg"); ok {
					fmt.Fprintf(&b, "  Net weight: %s kg\n", formatQuantity(w))
				}
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "get_critical_mineral_trade",
		Description: "Fetch UN Comtrade trade for every HS code in one critical-mineral group. A code with no data or a failing query is reported and skipped.",
		Params: []registry.Param{
			{Name: "mineral", Type: registry.TypeString, Description: "Mineral group name",
				Enum: sources.MineralGroups(), Required: true},
			{Name: "reporter", Type: registry.TypeString, Description: "Reporter country code", Required: true},
			{Name: "flow", Type: registry.TypeString, Description: "Trade flow",
				Enum: sources.ComtradeFlows, Default: "M"},
			{Name: "period", Type: registry.TypeString, Description: "Year or comma-separated years", Default: "2023"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			mineral := stringArg(args, "mineral")
			records, failed, err := d.Comtrade.CriticalMineralTrade(ctx,
				mineral, stringArg(args, "reporter"), stringArg(args, "flow"), stringArg(args, "period"))
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d trade rows for %s:\n", len(records), mineral)
			for _, rec := range records {
				partner, _ := rec.TextField("partner")
				hsCode, _ := rec.TextField("hs_code")
				fmt.Fprintf(&b, "\n- %s\n  HS code: %s\n  Partner: %s\n", rec.Title, hsCode, partner)
				if v, ok := rec.StatField("trade_value_usd"); ok {
					fmt.Fprintf(&b, "  Value: %s USD\n", formatQuantity(v))
				}
			}
			if len(failed) > 0 {
				fmt.Fprintf(&b, "\nHS codes with no usable data: %s\n", strings.Join(failed, ", "))
			}
			return b.String(), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "list_reporters",
		Description: "List UN Comtrade reporter countries with their numeric codes. Use the code as the reporter parameter of the trade tools.",
		Params: []registry.Param{
			{Name: "search", Type: registry.TypeString, Description: "Filter names by substring, case-insensitive"},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum entries to return",
				Default: 50, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			areas, err := d.Comtrade.Reporters(ctx)
			if err != nil {
				return nil, err
			}
			return formatRefAreas(areas, "reporter", stringArg(args, "search"), intArg(args, "limit")), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "list_partners",
		Description: "List UN Comtrade partner areas with their numeric codes (0 = world). Use the code as the partner parameter of the trade tools.",
		Params: []registry.Param{
			{Name: "search", Type: registry.TypeString, Description: "Filter names by substring, case-insensitive"},
			{Name: "limit", Type: registry.TypeInt, Description: "Maximum entries to return",
				Default: 50, Min: registry.Bound(1), Max: registry.Bound(500)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			areas, err := d.Comtrade.Partners(ctx)
			if err != nil {
				return nil, err
			}
			return formatRefAreas(areas, "partner", stringArg(args, "search"), intArg(args, "limit")), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "list_critical_minerals",
		Description: "List the known critical-mineral groups and the HS commodity codes each covers. No network call.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			var b strings.Builder
			groups := sources.MineralGroups()
			fmt.Fprintf(&b, "%d critical-mineral groups:\n", len(groups))
			for _, name := range groups {
				codes := sources.CriticalMineralHSCodes[name]
				fmt.Fprintf(&b, "- %s: HS %s\n", name, strings.Join(codes, ", "))
			}
			return b.String(), nil
		},
	})

	registerStatusTool(r, d)
}

// formatRefAreas renders a reference list, optionally filtered by a
// case-insensitive name substring.
func formatRefAreas(areas []sources.RefArea, kind, search string, limit int) string {
	needle := strings.ToLower(strings.TrimSpace(search))
	matched := make([]sources.RefArea, 0, len(areas))
	for _, a := range areas {
		if needle != "" && !strings.Contains(strings.ToLower(a.Name), needle) {
			continue
		}
		matched = append(matched, a)
	}
	if len(matched) == 0 {
		return fmt.Sprintf("No %s areas matched %q.", kind, search)
	}

	shown := matched
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s areas", len(matched), kind)
	if len(shown) < len(matched) {
		fmt.Fprintf(&b, " (showing %d)", len(shown))
	}
	b.WriteString(":\n")
	for _, a := range shown {
		fmt.Fprintf(&b, "- %s: %s\n", a.Code, a.Name)
	}
	return b.String()
}

func registerStatusTool(r *registry.Registry, d Deps) {
	r.MustRegister(registry.Descriptor{
		Name:        "get_api_status",
		Description: "Report which provider credentials are configured. Names only, never values.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			status := []struct {
				name       string
				configured bool
			}{
				{"OpenAI (OPENAI_API_KEY)", d.Creds.OpenAIKey != ""},
				{"Anthropic (ANTHROPIC_API_KEY)", d.Creds.AnthropicKey != ""},
				{"NETL EDX (EDX_API_KEY)", d.Creds.EDXKey != ""},
				{"SerpAPI (SERPAPI_API_KEY)", d.Creds.SerpAPIKey != ""},
				{"UN Comtrade (UNCOMTRADE_API_KEY)", d.Creds.ComtradeKey != ""},
			}

			var b strings.Builder
			b.WriteString("Provider credential status:\n")
			for _, s := range status {
				mark := "missing"
				if s.configured {
					mark = "configured"
				}
				fmt.Fprintf(&b, "- %s: %s\n", s.name, mark)
			}
			b.WriteString("- arXiv: no key required\n- BGS World Mineral Statistics: no key required\n- OSTI catalog: no key required (reads OSTI_DATA_PATH)\n")
			return b.String(), nil
		},
	})
}
