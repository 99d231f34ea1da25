// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// bgsFixturePage returns an OGC Features page for the lithium fixture:
// three countries over two years, plus one unusable feature.
func bgsFixturePage() string {
	return `{
	  "features": [
	    {"id": "f1", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
	      "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2022", "quantity": 61000, "units": "tonnes"}},
	    {"id": "f2", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
	      "country_trans": "Chile", "country_iso3_code": "CHL", "year": "2022", "quantity": 39000, "units": "tonnes"}},
	    {"id": "f3", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
	      "country_trans": "China", "country_iso3_code": "CHN", "year": "2022", "quantity": 19000, "units": "tonnes"}},
	    {"id": "f4", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
	      "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2021", "quantity": 55000, "units": "tonnes"}},
	    {"id": 17, "properties": {"bgs_commodity_trans": "", "country_trans": "", "year": "n/a"}}
	  ]
	}`
}

func testBGSClient(t *testing.T, handler http.HandlerFunc) *BGSClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := bgsAPIBase
	bgsAPIBase = srv.URL
	t.Cleanup(func() { bgsAPIBase = orig })

	cfg := types.BGSConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		PageLimit:  1000,
		MaxRecords: 5000,
	}
	return NewBGSClient(cfg, zerolog.Nop())
}

func serveBGSFixture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, bgsFixturePage())
}

func TestBGSSearchProduction(t *testing.T) {
	client := testBGSClient(t, serveBGSFixture)

	records, err := client.SearchProduction(context.Background(), BGSFilter{Commodity: "lithium minerals"})
	if err != nil {
		t.Fatalf("SearchProduction() error = %v", err)
	}
	// Four usable rows; the empty feature is skipped.
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}

	// Newest year first.
	if y, _ := records[0].StatField("year"); y != 2022 {
		t.Errorf("first year = %v, want 2022", y)
	}
	if y, _ := records[3].StatField("year"); y != 2021 {
		t.Errorf("last year = %v, want 2021", y)
	}

	first := records[0]
	if first.Source != "bgs" {
		t.Errorf("Source = %q", first.Source)
	}
	if qty, ok := first.StatField("quantity"); !ok || qty != 61000 {
		t.Errorf("quantity = %v, %v", qty, ok)
	}
	if units, _ := first.TextField("units"); units != "tonnes" {
		t.Errorf("units = %q", units)
	}
}

func TestBGSSearchYearFilter(t *testing.T) {
	client := testBGSClient(t, serveBGSFixture)

	records, err := client.SearchProduction(context.Background(), BGSFilter{
		Commodity: "lithium minerals",
		YearFrom:  2022,
	})
	if err != nil {
		t.Fatalf("SearchProduction() error = %v", err)
	}
	for _, r := range records {
		if y, _ := r.StatField("year"); y < 2022 {
			t.Errorf("record year %v below filter bound", y)
		}
	}
}

func TestBGSSearchValidatesStatisticType(t *testing.T) {
	var calls int
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		serveBGSFixture(w, r)
	})

	_, err := client.SearchProduction(context.Background(), BGSFilter{StatisticType: "Smuggling"})
	var verr *types.ValidationError
	if !errorsAs(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if calls != 0 {
		t.Errorf("network calls = %d, want 0", calls)
	}
}

func TestBGSRanking(t *testing.T) {
	client := testBGSClient(t, serveBGSFixture)

	entries, err := client.Ranking(context.Background(), "lithium minerals", 0, 2, "Production")
	if err != nil {
		t.Fatalf("Ranking() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (top_n)", len(entries))
	}

	// Most recent year (2022) is selected; Australia leads.
	if entries[0].Entity != "Australia" || entries[0].Year != 2022 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", entries[0].Rank, entries[1].Rank)
	}
	if entries[0].Value != 61000 {
		t.Errorf("top value = %v", entries[0].Value)
	}
	// 61000 of 119000 total → 51.26%.
	if entries[0].SharePercent != 51.26 {
		t.Errorf("share = %v, want 51.26", entries[0].SharePercent)
	}
	if entries[0].ISO3 != "AUS" {
		t.Errorf("iso3 = %q", entries[0].ISO3)
	}
}

func TestBGSCompareCountries(t *testing.T) {
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The client filters server-side by country; emulate that here.
		country := r.URL.Query().Get("country_trans")
		iso3 := r.URL.Query().Get("country_iso3_code")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case country == "Australia" || iso3 == "AUS":
			fmt.Fprint(w, `{"features": [
			  {"id": "a2", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
			    "country_trans": "Australia", "year": "2022", "quantity": 61000, "units": "tonnes"}},
			  {"id": "a1", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
			    "country_trans": "Australia", "year": "2021", "quantity": 55000, "units": "tonnes"}}
			]}`)
		default:
			fmt.Fprint(w, `{"features": []}`)
		}
	})

	series, err := client.CompareCountries(context.Background(), "lithium minerals", []string{"AUS", "Narnia"}, 0, 0, "Production")
	if err != nil {
		t.Fatalf("CompareCountries() error = %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2", len(series))
	}

	aus := series[0]
	if aus.Country != "Australia" {
		t.Errorf("resolved country = %q, want Australia (from records)", aus.Country)
	}
	if len(aus.Points) != 2 || aus.Points[0].Year != 2021 || aus.Points[1].Year != 2022 {
		t.Errorf("points = %+v, want ascending years", aus.Points)
	}

	// A country with no data keeps its slot with an empty series.
	if series[1].Country != "Narnia" || len(series[1].Points) != 0 {
		t.Errorf("series[1] = %+v", series[1])
	}
}

func TestBGSTimeSeriesGlobalAggregate(t *testing.T) {
	client := testBGSClient(t, serveBGSFixture)

	points, country, err := client.TimeSeries(context.Background(), "lithium minerals", "", "Production")
	if err != nil {
		t.Fatalf("TimeSeries() error = %v", err)
	}
	if country != "" {
		t.Errorf("country = %q, want empty for the global series", country)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	// Years ascending, per-year quantities summed across countries.
	if points[0].Year != 2021 || points[0].Quantity != 55000 {
		t.Errorf("points[0] = %+v", points[0])
	}
	// 61000 + 39000 + 19000 across three producers in 2022.
	if points[1].Year != 2022 || points[1].Quantity != 119000 {
		t.Errorf("points[1] = %+v", points[1])
	}
	if points[1].Units != "tonnes" {
		t.Errorf("units = %q", points[1].Units)
	}
}

func TestBGSTimeSeriesSingleCountry(t *testing.T) {
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("country_iso3_code"); got != "AUS" {
			t.Errorf("country_iso3_code = %q, want AUS", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"features": [
		  {"id": "a1", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
		    "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2021", "quantity": 55000, "units": "tonnes"}},
		  {"id": "a2", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
		    "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2022", "quantity": 61000, "units": "tonnes"}}
		]}`)
	})

	points, country, err := client.TimeSeries(context.Background(), "lithium minerals", "AUS", "Production")
	if err != nil {
		t.Fatalf("TimeSeries() error = %v", err)
	}
	if country != "Australia" {
		t.Errorf("country = %q, want Australia (resolved from records)", country)
	}
	if len(points) != 2 || points[0].Year != 2021 || points[1].Year != 2022 {
		t.Errorf("points = %+v, want ascending years", points)
	}
}

func TestBGSTimeSeriesRequiresCommodity(t *testing.T) {
	var calls int
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		serveBGSFixture(w, r)
	})

	_, _, err := client.TimeSeries(context.Background(), "  ", "", "Production")
	var verr *types.ValidationError
	if !errorsAs(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if calls != 0 {
		t.Errorf("network calls = %d, want 0", calls)
	}
}

func TestBGSCountryProfile(t *testing.T) {
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("country_iso3_code"); got != "AUS" {
			t.Errorf("country_iso3_code = %q, want AUS", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"features": [
		  {"id": "p1", "properties": {"bgs_commodity_trans": "lithium minerals", "bgs_statistic_type_trans": "Production",
		    "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2022", "quantity": 61000, "units": "tonnes"}},
		  {"id": "p2", "properties": {"bgs_commodity_trans": "iron ore", "bgs_statistic_type_trans": "Production",
		    "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2022", "quantity": 880000000, "units": "tonnes"}},
		  {"id": "p3", "properties": {"bgs_commodity_trans": "iron ore", "bgs_statistic_type_trans": "Production",
		    "country_trans": "Australia", "country_iso3_code": "AUS", "year": "2021", "quantity": 860000000, "units": "tonnes"}}
		]}`)
	})

	entries, country, year, err := client.CountryProfile(context.Background(), "AUS", 0, "Production")
	if err != nil {
		t.Fatalf("CountryProfile() error = %v", err)
	}
	if country != "Australia" {
		t.Errorf("country = %q, want Australia", country)
	}
	// Year zero selects the most recent year with data.
	if year != 2022 {
		t.Errorf("year = %d, want 2022", year)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (2021 rows excluded)", len(entries))
	}
	// Largest quantity first.
	if entries[0].Commodity != "iron ore" || entries[0].Quantity != 880000000 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Commodity != "lithium minerals" || entries[1].Quantity != 61000 {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestBGSCountryProfileNoData(t *testing.T) {
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"features": []}`)
	})

	entries, _, _, err := client.CountryProfile(context.Background(), "Narnia", 0, "Production")
	if err != nil {
		t.Fatalf("CountryProfile() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}

	_, _, _, err = client.CountryProfile(context.Background(), "", 0, "Production")
	var verr *types.ValidationError
	if !errorsAs(err, &verr) {
		t.Errorf("empty country: error = %v, want ValidationError", err)
	}
}

func TestBGSCommoditiesCriticalOnly(t *testing.T) {
	var calls int
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		serveBGSFixture(w, r)
	})

	names, err := client.Commodities(context.Background(), true)
	if err != nil {
		t.Fatalf("Commodities() error = %v", err)
	}
	if len(names) != len(CriticalMinerals) {
		t.Errorf("len = %d, want %d", len(names), len(CriticalMinerals))
	}
	if calls != 0 {
		t.Errorf("critical-only list must not hit the network, calls = %d", calls)
	}
}

func TestBGSCommoditiesDistinctSorted(t *testing.T) {
	client := testBGSClient(t, serveBGSFixture)

	names, err := client.Commodities(context.Background(), false)
	if err != nil {
		t.Fatalf("Commodities() error = %v", err)
	}
	if len(names) != 1 || names[0] != "lithium minerals" {
		t.Errorf("names = %v", names)
	}
}

func TestBGSPagination(t *testing.T) {
	var offsets []int
	client := testBGSClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offsets = append(offsets, offset)
		w.Header().Set("Content-Type", "application/json")

		// First page full, second page short.
		n := limit
		if offset > 0 {
			n = 1
		}
		fmt.Fprint(w, `{"features": [`)
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id": "r%d-%d", "properties": {"bgs_commodity_trans": "iron ore", "bgs_statistic_type_trans": "Production",
			  "country_trans": "Brazil", "year": "2020", "quantity": 1}}`, offset, i)
		}
		fmt.Fprint(w, `]}`)
	})
	client.cfg.PageLimit = 3
	client.cfg.MaxRecords = 100

	records, err := client.SearchProduction(context.Background(), BGSFilter{Commodity: "iron ore", Limit: 10})
	if err != nil {
		t.Fatalf("SearchProduction() error = %v", err)
	}
	if len(records) != 4 {
		t.Errorf("len(records) = %d, want 4 (3 + short page of 1)", len(records))
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 3 {
		t.Errorf("offsets = %v, want [0 3]", offsets)
	}
}
