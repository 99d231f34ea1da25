// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/httputil"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// scholarAPIBase is the SerpAPI endpoint. Declared as a var so tests can
// substitute an httptest server.
var scholarAPIBase = "https://serpapi.com"

// ScholarClient searches Google Scholar through SerpAPI.
type ScholarClient struct {
	client *http.Client
	cfg    types.ScholarConfig
	apiKey string
	log    zerolog.Logger
}

// NewScholarClient builds the client. Calls without a configured SerpAPI
// key fail with AuthError before any request.
func NewScholarClient(cfg types.ScholarConfig, apiKey string, log zerolog.Logger) *ScholarClient {
	return &ScholarClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		apiKey: apiKey,
		log:    log.With().Str("source", "scholar").Logger(),
	}
}

// Search runs a Google Scholar query, optionally bounded by publication
// year. yearFrom or yearTo of zero means unbounded on that side.
func (c *ScholarClient) Search(ctx context.Context, query string, yearFrom, yearTo, num int) ([]types.Record, error) {
	if c.apiKey == "" {
		return nil, &types.AuthError{Provider: "scholar", Reason: "SERPAPI_API_KEY is not configured"}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &types.ValidationError{Param: "query", Reason: "must not be empty"}
	}
	if num < 1 || num > c.cfg.MaxResults {
		return nil, &types.ValidationError{
			Param:  "num",
			Reason: fmt.Sprintf("must be within [1, %d]", c.cfg.MaxResults),
		}
	}
	if yearFrom > 0 && yearTo > 0 && yearFrom > yearTo {
		return nil, &types.ValidationError{Param: "year_from", Reason: "must not exceed year_to"}
	}

	params := url.Values{
		"engine":  {"google_scholar"},
		"q":       {query},
		"num":     {strconv.Itoa(num)},
		"api_key": {c.apiKey},
	}
	if yearFrom > 0 {
		params.Set("as_ylo", strconv.Itoa(yearFrom))
	}
	if yearTo > 0 {
		params.Set("as_yhi", strconv.Itoa(yearTo))
	}

	reqURL := scholarAPIBase + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "scholar", Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.log.Debug().Str("query", query).Int("num", num).Msg("Scholar search")
	body, err := httputil.Do(ctx, c.client, nil, req, "scholar")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Error          string          `json:"error"`
		OrganicResults []scholarResult `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Msg("malformed SerpAPI payload")
		return nil, &types.ParseError{Source: "scholar", Reason: "malformed payload"}
	}
	// SerpAPI reports failures in-band on a 200 response.
	if payload.Error != "" {
		return nil, &types.ProviderError{Provider: "scholar", Reason: payload.Error}
	}

	records := make([]types.Record, 0, len(payload.OrganicResults))
	for _, res := range payload.OrganicResults {
		rec, ok := c.parseResult(res)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseResult normalizes one organic result. Results without a title are
// skipped.
func (c *ScholarClient) parseResult(res scholarResult) (types.Record, bool) {
	if res.Title == "" {
		c.log.Warn().Msg("skipping scholar result without title")
		return types.Record{}, false
	}

	id := res.ResultID
	if id == "" {
		id = res.Link
	}

	rec := types.Record{ID: id, Title: res.Title, Source: "scholar"}
	rec.SetText("snippet", res.Snippet)
	rec.SetText("link", res.Link)
	rec.SetText("publication", res.PublicationInfo.Summary)
	if res.InlineLinks.CitedBy.Total > 0 {
		rec.SetStat("cited_by", float64(res.InlineLinks.CitedBy.Total))
	}
	for _, author := range res.PublicationInfo.Authors {
		if author.Name != "" {
			rec.Authors = append(rec.Authors, author.Name)
		}
	}
	return rec, true
}

// SerpAPI organic result shape.
type scholarResult struct {
	ResultID        string `json:"result_id"`
	Title           string `json:"title"`
	Link            string `json:"link"`
	Snippet         string `json:"snippet"`
	PublicationInfo struct {
		Summary string `json:"summary"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"publication_info"`
	InlineLinks struct {
		CitedBy struct {
			Total int `json:"total"`
		} `json:"cited_by"`
	} `json:"inline_links"`
}
