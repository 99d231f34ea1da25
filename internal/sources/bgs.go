// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/httputil"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// bgsAPIBase is the BGS World Mineral Statistics OGC Features collection.
// Declared as a var so tests can substitute an httptest server.
var bgsAPIBase = "https://ogcapi.bgs.ac.uk/collections/world-mineral-statistics"

// BGSStatisticTypes enumerates the statistic kinds the collection carries.
var BGSStatisticTypes = []string{"Production", "Imports", "Exports"}

// CriticalMinerals is the curated commodity list used by critical-minerals
// tooling: battery minerals, rare earths, strategic and technology metals,
// base and precious metals, and key industrial minerals.
var CriticalMinerals = []string{
	"lithium minerals",
	"cobalt, mine",
	"cobalt, refined",
	"nickel, mine",
	"nickel, smelter/refinery",
	"graphite",
	"manganese ore",
	"rare earth minerals",
	"rare earth oxides",
	"platinum group metals, mine",
	"vanadium, mine",
	"tungsten, mine",
	"chromium ores and concentrates",
	"tantalum and niobium minerals",
	"titanium minerals",
	"gallium, primary",
	"germanium metal",
	"indium, refinery",
	"beryl",
	"bismuth, mine",
	"selenium, refined",
	"rhenium",
	"strontium minerals",
	"copper, mine",
	"copper, refined",
	"zinc, mine",
	"lead, mine",
	"tin, mine",
	"aluminium, primary",
	"bauxite",
	"fluorspar",
	"magnesite",
	"phosphate rock",
	"barytes",
	"borates",
	"gold, mine",
	"silver, mine",
	"antimony, mine",
	"molybdenum, mine",
	"iron ore",
}

// BGSFilter narrows a production search. Zero values mean "no filter".
type BGSFilter struct {
	Commodity     string
	Country       string
	CountryISO    string // two- or three-letter code
	YearFrom      int
	YearTo        int
	StatisticType string // one of BGSStatisticTypes; default Production
	Limit         int
}

// SeriesPoint is one year's value in a country comparison.
type SeriesPoint struct {
	Year     int     `json:"year"`
	Quantity float64 `json:"quantity"`
	Units    string  `json:"units,omitempty"`
}

// ComparisonSeries is the per-country time series returned by CompareCountries.
type ComparisonSeries struct {
	Country string        `json:"country"`
	Points  []SeriesPoint `json:"points"`
}

// BGSClient queries the BGS World Mineral Statistics API.
type BGSClient struct {
	client *http.Client
	cfg    types.BGSConfig
	log    zerolog.Logger
}

// NewBGSClient builds the client. The BGS API is unauthenticated.
func NewBGSClient(cfg types.BGSConfig, log zerolog.Logger) *BGSClient {
	return &BGSClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log.With().Str("source", "bgs").Logger(),
	}
}

// SearchProduction returns mineral statistics records matching the filter,
// newest year first. Year bounds are applied client-side; the OGC API has
// no native year-range parameter.
func (c *BGSClient) SearchProduction(ctx context.Context, f BGSFilter) ([]types.Record, error) {
	if f.StatisticType == "" {
		f.StatisticType = "Production"
	}
	if !containsString(BGSStatisticTypes, f.StatisticType) {
		return nil, &types.ValidationError{
			Param:  "statistic_type",
			Reason: fmt.Sprintf("must be one of %s", strings.Join(BGSStatisticTypes, ", ")),
		}
	}
	if f.Limit <= 0 {
		f.Limit = c.cfg.PageLimit
	}
	if f.Limit > c.cfg.MaxRecords {
		return nil, &types.ValidationError{
			Param:  "limit",
			Reason: fmt.Sprintf("must be within [1, %d]", c.cfg.MaxRecords),
		}
	}

	params := url.Values{"bgs_statistic_type_trans": {f.StatisticType}}
	if f.Commodity != "" {
		params.Set("bgs_commodity_trans", f.Commodity)
	}
	if f.Country != "" {
		params.Set("country_trans", f.Country)
	}
	if iso := strings.ToUpper(strings.TrimSpace(f.CountryISO)); iso != "" {
		if len(iso) == 2 {
			params.Set("country_iso2_code", iso)
		} else {
			params.Set("country_iso3_code", iso)
		}
	}

	var records []types.Record
	offset := 0
	for len(records) < f.Limit {
		pageLimit := c.cfg.PageLimit
		if remaining := f.Limit - len(records); remaining < pageLimit {
			pageLimit = remaining
		}

		page, err := c.fetchItems(ctx, params, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Features) == 0 {
			break
		}

		for _, feat := range page.Features {
			rec, ok := c.parseFeature(feat)
			if !ok {
				continue
			}
			if year, has := rec.StatField("year"); has {
				y := int(year)
				if (f.YearFrom != 0 && y < f.YearFrom) || (f.YearTo != 0 && y > f.YearTo) {
					continue
				}
			}
			records = append(records, rec)
			if len(records) >= f.Limit {
				break
			}
		}

		if len(page.Features) < pageLimit {
			break
		}
		offset += pageLimit
	}

	sort.SliceStable(records, func(i, j int) bool {
		yi, _ := records[i].StatField("year")
		yj, _ := records[j].StatField("year")
		return yi > yj
	})
	return records, nil
}

// Ranking aggregates a commodity's statistic by country for one year and
// returns the top entries with their share of the total. When year is
// zero the most recent year in the data is used.
func (c *BGSClient) Ranking(ctx context.Context, commodity string, year, topN int, statisticType string) ([]types.RankingEntry, error) {
	if strings.TrimSpace(commodity) == "" {
		return nil, &types.ValidationError{Param: "commodity", Reason: "must not be empty"}
	}
	if topN <= 0 {
		topN = 15
	}

	records, err := c.SearchProduction(ctx, BGSFilter{
		Commodity:     commodity,
		StatisticType: statisticType,
		Limit:         c.cfg.MaxRecords,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if year == 0 {
		for _, r := range records {
			if y, ok := r.StatField("year"); ok && int(y) > year {
				year = int(y)
			}
		}
	}

	type bucket struct {
		country string
		iso3    string
		units   string
		total   float64
	}
	totals := make(map[string]*bucket)
	for _, r := range records {
		y, hasYear := r.StatField("year")
		qty, hasQty := r.StatField("quantity")
		if !hasYear || int(y) != year || !hasQty {
			continue
		}
		country, _ := r.TextField("country")
		if country == "" {
			continue
		}
		b, ok := totals[country]
		if !ok {
			iso3, _ := r.TextField("country_iso3")
			units, _ := r.TextField("units")
			b = &bucket{country: country, iso3: iso3, units: units}
			totals[country] = b
		}
		b.total += qty
	}

	buckets := make([]*bucket, 0, len(totals))
	var grand float64
	for _, b := range totals {
		buckets = append(buckets, b)
		grand += b.total
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].total != buckets[j].total {
			return buckets[i].total > buckets[j].total
		}
		return buckets[i].country < buckets[j].country
	})
	if len(buckets) > topN {
		buckets = buckets[:topN]
	}

	entries := make([]types.RankingEntry, len(buckets))
	for i, b := range buckets {
		share := 0.0
		if grand > 0 {
			share = math.Round(b.total/grand*100*100) / 100
		}
		entries[i] = types.RankingEntry{
			Rank:         i + 1,
			Entity:       b.country,
			ISO3:         b.iso3,
			Value:        b.total,
			Units:        b.units,
			Year:         year,
			SharePercent: share,
		}
	}
	return entries, nil
}

// CompareCountries returns a per-country time series for one commodity,
// years ascending. Inputs of three characters or fewer are treated as ISO
// codes, longer ones as country names.
func (c *BGSClient) CompareCountries(ctx context.Context, commodity string, countries []string, yearFrom, yearTo int, statisticType string) ([]ComparisonSeries, error) {
	if strings.TrimSpace(commodity) == "" {
		return nil, &types.ValidationError{Param: "commodity", Reason: "must not be empty"}
	}
	if len(countries) == 0 {
		return nil, &types.ValidationError{Param: "countries", Reason: "must list at least one country"}
	}

	series := make([]ComparisonSeries, 0, len(countries))
	for _, country := range countries {
		f := BGSFilter{
			Commodity:     commodity,
			YearFrom:      yearFrom,
			YearTo:        yearTo,
			StatisticType: statisticType,
			Limit:         c.cfg.PageLimit,
		}
		if len(country) <= 3 {
			f.CountryISO = country
		} else {
			f.Country = country
		}

		records, err := c.SearchProduction(ctx, f)
		if err != nil {
			return nil, err
		}

		name := country
		if len(records) > 0 {
			if resolved, ok := records[0].TextField("country"); ok {
				name = resolved
			}
		}

		points := make([]SeriesPoint, 0, len(records))
		for _, r := range records {
			y, hasYear := r.StatField("year")
			qty, hasQty := r.StatField("quantity")
			if !hasYear || !hasQty {
				continue
			}
			units, _ := r.TextField("units")
			points = append(points, SeriesPoint{Year: int(y), Quantity: qty, Units: units})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })

		series = append(series, ComparisonSeries{Country: name, Points: points})
	}
	return series, nil
}

// TimeSeries returns one commodity's yearly totals, years ascending. With
// a country the series covers that country alone; without one the yearly
// quantities are summed across all producers. The resolved country name
// ("" for the global series) and units come back alongside the points.
func (c *BGSClient) TimeSeries(ctx context.Context, commodity, country, statisticType string) ([]SeriesPoint, string, error) {
	if strings.TrimSpace(commodity) == "" {
		return nil, "", &types.ValidationError{Param: "commodity", Reason: "must not be empty"}
	}

	f := BGSFilter{
		Commodity:     commodity,
		StatisticType: statisticType,
		Limit:         c.cfg.MaxRecords,
	}
	if country != "" {
		if len(country) <= 3 {
			f.CountryISO = country
		} else {
			f.Country = country
		}
	}

	records, err := c.SearchProduction(ctx, f)
	if err != nil {
		return nil, "", err
	}

	resolved := ""
	if country != "" && len(records) > 0 {
		resolved, _ = records[0].TextField("country")
	}

	totals := make(map[int]*SeriesPoint)
	for _, r := range records {
		y, hasYear := r.StatField("year")
		qty, hasQty := r.StatField("quantity")
		if !hasYear || !hasQty {
			continue
		}
		year := int(y)
		p, ok := totals[year]
		if !ok {
			units, _ := r.TextField("units")
			p = &SeriesPoint{Year: year, Units: units}
			totals[year] = p
		}
		p.Quantity += qty
	}

	points := make([]SeriesPoint, 0, len(totals))
	for _, p := range totals {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	return points, resolved, nil
}

// ProfileEntry is one commodity's total in a country profile.
type ProfileEntry struct {
	Commodity string  `json:"commodity"`
	Quantity  float64 `json:"quantity"`
	Units     string  `json:"units,omitempty"`
}

// CountryProfile aggregates every commodity a country reports for one
// year, largest first. When year is zero the most recent year with data
// is used; the resolved country name and year come back with the entries.
func (c *BGSClient) CountryProfile(ctx context.Context, country string, year int, statisticType string) ([]ProfileEntry, string, int, error) {
	if strings.TrimSpace(country) == "" {
		return nil, "", 0, &types.ValidationError{Param: "country", Reason: "must not be empty"}
	}

	f := BGSFilter{
		StatisticType: statisticType,
		Limit:         c.cfg.MaxRecords,
	}
	if len(country) <= 3 {
		f.CountryISO = country
	} else {
		f.Country = country
	}

	records, err := c.SearchProduction(ctx, f)
	if err != nil {
		return nil, "", 0, err
	}
	if len(records) == 0 {
		return nil, "", 0, nil
	}
	resolved, _ := records[0].TextField("country")

	if year == 0 {
		for _, r := range records {
			if y, ok := r.StatField("year"); ok && int(y) > year {
				year = int(y)
			}
		}
	}

	totals := make(map[string]*ProfileEntry)
	for _, r := range records {
		y, hasYear := r.StatField("year")
		qty, hasQty := r.StatField("quantity")
		if !hasYear || int(y) != year || !hasQty {
			continue
		}
		commodity, _ := r.TextField("commodity")
		if commodity == "" {
			continue
		}
		e, ok := totals[commodity]
		if !ok {
			units, _ := r.TextField("units")
			e = &ProfileEntry{Commodity: commodity, Units: units}
			totals[commodity] = e
		}
		e.Quantity += qty
	}

	entries := make([]ProfileEntry, 0, len(totals))
	for _, e := range totals {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Quantity != entries[j].Quantity {
			return entries[i].Quantity > entries[j].Quantity
		}
		return entries[i].Commodity < entries[j].Commodity
	})
	return entries, resolved, year, nil
}

// Commodities lists distinct commodity names. With criticalOnly the static
// critical-minerals list is returned without a network call.
func (c *BGSClient) Commodities(ctx context.Context, criticalOnly bool) ([]string, error) {
	if criticalOnly {
		out := make([]string, len(CriticalMinerals))
		copy(out, CriticalMinerals)
		return out, nil
	}

	seen := make(map[string]struct{})
	offset := 0
	for page := 0; page < 4; page++ {
		items, err := c.fetchItems(ctx, url.Values{}, c.cfg.PageLimit, offset)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			break
		}
		for _, feat := range items.Features {
			if name := feat.Properties.Commodity; name != "" {
				seen[name] = struct{}{}
			}
		}
		if len(items.Features) < c.cfg.PageLimit {
			break
		}
		offset += c.cfg.PageLimit
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *BGSClient) fetchItems(ctx context.Context, params url.Values, limit, offset int) (*bgsFeatureCollection, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	reqURL := bgsAPIBase + "/items?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "bgs", Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.log.Debug().Str("url", reqURL).Msg("BGS API request")
	body, err := httputil.Do(ctx, c.client, nil, req, "bgs")
	if err != nil {
		return nil, err
	}

	var fc bgsFeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		c.log.Warn().Err(err).Msg("malformed feature collection")
		return nil, &types.ParseError{Source: "bgs", Reason: "malformed feature collection"}
	}
	return &fc, nil
}

// parseFeature normalizes one OGC feature. Features with no commodity
// and no country are unusable and skipped.
func (c *BGSClient) parseFeature(feat bgsFeature) (types.Record, bool) {
	p := feat.Properties
	if p.Commodity == "" && p.Country == "" {
		c.log.Warn().Msg("skipping feature without commodity or country")
		return types.Record{}, false
	}

	title := p.Commodity
	if p.Country != "" {
		title = fmt.Sprintf("%s - %s", p.Commodity, p.Country)
	}

	rec := types.Record{
		ID:     featureID(feat.ID, p),
		Title:  title,
		Source: "bgs",
	}
	rec.SetText("commodity", p.Commodity)
	rec.SetText("sub_commodity", p.SubCommodity)
	rec.SetText("statistic_type", p.StatisticType)
	rec.SetText("country", p.Country)
	rec.SetText("country_iso2", p.ISO2)
	rec.SetText("country_iso3", p.ISO3)
	rec.SetText("units", p.Units)
	rec.SetText("yearbook_table", p.YearbookTable)
	rec.SetText("notes", p.Notes)

	// Years arrive as strings like "2021" or "2021/22".
	if len(p.Year) >= 4 {
		if y, err := strconv.Atoi(p.Year[:4]); err == nil {
			rec.SetStat("year", float64(y))
		}
	}
	if p.Quantity != nil {
		rec.SetStat("quantity", *p.Quantity)
	}

	return rec, true
}

// featureID prefers the feature's own id; otherwise it derives a stable
// key from the row's dimensions.
func featureID(id any, p bgsProperties) string {
	switch v := id.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%s|%s|%s|%s", p.Commodity, p.Country, p.StatisticType, p.Year)
}

// BGS OGC Features JSON structures.
type bgsFeatureCollection struct {
	Features []bgsFeature `json:"features"`
}

type bgsFeature struct {
	ID         any           `json:"id"`
	Properties bgsProperties `json:"properties"`
}

type bgsProperties struct {
	Commodity     string   `json:"bgs_commodity_trans"`
	SubCommodity  string   `json:"bgs_sub_commodity_trans"`
	StatisticType string   `json:"bgs_statistic_type_trans"`
	Country       string   `json:"country_trans"`
	ISO2          string   `json:"country_iso2_code"`
	ISO3          string   `json:"country_iso3_code"`
	Year          string   `json:"year"`
	Quantity      *float64 `json:"quantity"`
	Units         string   `json:"units"`
	YearbookTable string   `json:"yearbook_table_trans"`
	Notes         string   `json:"concat_table_notes_text"`
}
