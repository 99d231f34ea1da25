// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/httputil"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// comtradeAPIBase is the UN Comtrade API root. The data path selects
// commodities (C), annual periods (A), and the HS classification.
// Declared as a var so tests can substitute an httptest server.
var comtradeAPIBase = "https://comtradeapi.un.org"

const (
	comtradeDataPath = "/data/v1/get/C/A/HS"
	comtradeRefsPath = "/files/v1/app/reference"
)

// ComtradeFlows enumerates accepted trade-flow selectors: imports,
// exports, or both.
var ComtradeFlows = []string{"M", "X", "M,X"}

// CriticalMineralHSCodes maps critical-mineral groups to the HS commodity
// codes that cover their ores, compounds, and primary products.
var CriticalMineralHSCodes = map[string][]string{
	"lithium":    {"253090", "282520", "283691", "850650"},
	"cobalt":     {"2605", "282200", "810520", "810590"},
	"hree":       {"284690"},
	"lree":       {"284610"},
	"rare_earth": {"2846", "280530"},
	"graphite":   {"250410", "250490", "380110"},
	"nickel":     {"2604", "282540", "7502"},
	"manganese":  {"2602", "811100"},
	"copper":     {"2603", "7402", "7403"},
	"gallium":    {"811292"},
	"germanium":  {"811292"},
	"tungsten":   {"2611", "810194"},
	"vanadium":   {"2615", "282530"},
}

// ComtradeClient queries the UN Comtrade goods API.
type ComtradeClient struct {
	client *http.Client
	cfg    types.ComtradeConfig
	apiKey string
	log    zerolog.Logger
}

// NewComtradeClient builds the client. Calls without a configured
// subscription key fail with AuthError before any request.
func NewComtradeClient(cfg types.ComtradeConfig, apiKey string, log zerolog.Logger) *ComtradeClient {
	return &ComtradeClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		apiKey: apiKey,
		log:    log.With().Str("source", "comtrade").Logger(),
	}
}

// TradeQuery selects trade rows. Reporter and partner are numeric UN
// country codes ("842" = USA, "0" = world).
type TradeQuery struct {
	Reporter   string
	Partner    string // default "0" (world)
	Commodity  string // HS code, default "TOTAL"
	Flow       string // one of ComtradeFlows, default "M"
	Period     string // year or comma-separated years, default "2023"
	MaxRecords int
}

// TradeData returns trade rows matching the query. Rows the API returns
// without a period or reporter are skipped, not fatal.
func (c *ComtradeClient) TradeData(ctx context.Context, q TradeQuery) ([]types.Record, error) {
	if c.apiKey == "" {
		return nil, &types.AuthError{Provider: "comtrade", Reason: "UNCOMTRADE_API_KEY is not configured"}
	}
	if strings.TrimSpace(q.Reporter) == "" {
		return nil, &types.ValidationError{Param: "reporter", Reason: "must not be empty"}
	}
	if q.Partner == "" {
		q.Partner = "0"
	}
	if q.Commodity == "" {
		q.Commodity = "TOTAL"
	}
	if q.Flow == "" {
		q.Flow = "M"
	}
	if !containsString(ComtradeFlows, q.Flow) {
		return nil, &types.ValidationError{
			Param:  "flow",
			Reason: fmt.Sprintf("must be one of %s", strings.Join(ComtradeFlows, ", ")),
		}
	}
	if q.Period == "" {
		q.Period = "2023"
	}
	if q.MaxRecords <= 0 || q.MaxRecords > c.cfg.MaxRecords {
		q.MaxRecords = c.cfg.MaxRecords
	}

	params := url.Values{
		"reporterCode": {q.Reporter},
		"partnerCode":  {q.Partner},
		"cmdCode":      {q.Commodity},
		"flowCode":     {q.Flow},
		"period":       {q.Period},
		"maxRecords":   {strconv.Itoa(q.MaxRecords)},
	}

	reqURL := comtradeAPIBase + comtradeDataPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "comtrade", Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.log.Debug().Str("url", reqURL).Msg("Comtrade API request")
	body, err := httputil.Do(ctx, c.client, nil, req, "comtrade")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []comtradeRow `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Msg("malformed Comtrade payload")
		return nil, &types.ParseError{Source: "comtrade", Reason: "malformed payload"}
	}

	records := make([]types.Record, 0, len(payload.Data))
	for _, row := range payload.Data {
		rec, ok := c.parseRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// CriticalMineralTrade fetches trade rows for each HS code in the named
// mineral group. One code's failure does not abort the rest; failed codes
// are reported alongside the rows fetched so far.
func (c *ComtradeClient) CriticalMineralTrade(ctx context.Context, mineral, reporter, flow, period string) ([]types.Record, []string, error) {
	codes, ok := CriticalMineralHSCodes[strings.ToLower(strings.TrimSpace(mineral))]
	if !ok {
		return nil, nil, &types.ValidationError{
			Param:  "mineral",
			Reason: fmt.Sprintf("unknown mineral group %q; use list_critical_minerals", mineral),
		}
	}

	var records []types.Record
	var failed []string
	for _, code := range codes {
		rows, err := c.TradeData(ctx, TradeQuery{
			Reporter:  reporter,
			Commodity: code,
			Flow:      flow,
			Period:    period,
		})
		if err != nil {
			c.log.Warn().Err(err).Str("hs_code", code).Msg("critical mineral code failed")
			failed = append(failed, code)
			continue
		}
		records = append(records, rows...)
	}
	return records, failed, nil
}

// RefArea is one entry in a Comtrade reference list: the numeric code
// used in queries and its human-readable name.
type RefArea struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Reporters returns the reference list of reporter countries. Reference
// files are public; no subscription key is required.
func (c *ComtradeClient) Reporters(ctx context.Context) ([]RefArea, error) {
	return c.referenceList(ctx, "Reporters.json")
}

// Partners returns the reference list of partner areas, including the
// world aggregate (code 0).
func (c *ComtradeClient) Partners(ctx context.Context) ([]RefArea, error) {
	return c.referenceList(ctx, "partnerAreas.json")
}

func (c *ComtradeClient) referenceList(ctx context.Context, file string) ([]RefArea, error) {
	reqURL := comtradeAPIBase + comtradeRefsPath + "/" + file
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "comtrade", Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	c.log.Debug().Str("url", reqURL).Msg("Comtrade reference request")
	body, err := httputil.Do(ctx, c.client, nil, req, "comtrade")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			ID   json.Number `json:"id"`
			Text string      `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Str("file", file).Msg("malformed reference list")
		return nil, &types.ParseError{Source: "comtrade", Reason: "malformed reference list"}
	}

	areas := make([]RefArea, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.ID.String() == "" || r.Text == "" {
			continue
		}
		areas = append(areas, RefArea{Code: r.ID.String(), Name: r.Text})
	}
	return areas, nil
}

// MineralGroups returns the known critical-mineral group names, sorted.
func MineralGroups() []string {
	groups := make([]string, 0, len(CriticalMineralHSCodes))
	for name := range CriticalMineralHSCodes {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	return groups
}

// parseRow normalizes one trade row. Rows with no period or reporter
// code cannot be addressed and are skipped.
func (c *ComtradeClient) parseRow(row comtradeRow) (types.Record, bool) {
	if row.Period == "" || row.ReporterCode == 0 {
		c.log.Warn().Msg("skipping trade row without period or reporter")
		return types.Record{}, false
	}

	reporter := row.ReporterDesc
	if reporter == "" {
		reporter = "Country " + strconv.Itoa(row.ReporterCode)
	}
	partner := row.PartnerDesc
	if partner == "" {
		if row.PartnerCode == 0 {
			partner = "World"
		} else {
			partner = "Country " + strconv.Itoa(row.PartnerCode)
		}
	}

	id := fmt.Sprintf("%s|%d|%d|%s|%s", row.Period, row.ReporterCode, row.PartnerCode, row.CmdCode, row.FlowCode)
	title := fmt.Sprintf("%s %s %s (%s)", reporter, flowVerb(row.FlowCode), firstNonEmpty(row.CmdDesc, row.CmdCode), row.Period)

	rec := types.Record{ID: id, Title: title, Source: "comtrade"}
	rec.SetText("reporter", reporter)
	rec.SetText("partner", partner)
	rec.SetText("flow", firstNonEmpty(row.FlowDesc, row.FlowCode))
	rec.SetText("commodity", firstNonEmpty(row.CmdDesc, row.CmdCode))
	rec.SetText("hs_code", row.CmdCode)
	rec.SetText("quantity_unit", row.QtyUnitAbbr)

	if y, err := strconv.Atoi(row.Period); err == nil {
		rec.SetStat("year", float64(y))
	}
	if row.PrimaryValue != nil {
		rec.SetStat("trade_value_usd", *row.PrimaryValue)
	}
	if row.NetWgt != nil {
		rec.SetStat("net_weight_kg", *row.NetWgt)
	}
	if row.Qty != nil {
		rec.SetStat("quantity", *row.Qty)
	}
	return rec, true
}

func flowVerb(code string) string {
	switch code {
	case "M":
		return "imports of"
	case "X":
		return "exports of"
	default:
		return "trade in"
	}
}

// comtradeRow mirrors the UN Comtrade row shape.
type comtradeRow struct {
	Period       string   `json:"period"`
	ReporterCode int      `json:"reporterCode"`
	ReporterDesc string   `json:"reporterDesc"`
	PartnerCode  int      `json:"partnerCode"`
	PartnerDesc  string   `json:"partnerDesc"`
	FlowCode     string   `json:"flowCode"`
	FlowDesc     string   `json:"flowDesc"`
	CmdCode      string   `json:"cmdCode"`
	CmdDesc      string   `json:"cmdDesc"`
	PrimaryValue *float64 `json:"primaryValue"`
	NetWgt       *float64 `json:"netWgt"`
	Qty          *float64 `json:"qty"`
	QtyUnitAbbr  string   `json:"qtyUnitAbbr"`
}
