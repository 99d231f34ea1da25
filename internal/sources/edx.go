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

// edxAPIBase is the NETL EDX CKAN action API root. Declared as a var so
// tests can substitute an httptest server.
var edxAPIBase = "https://edx.netl.doe.gov/api/3/action"

// EDXClient queries the NETL EDX (CKAN) API for CLAIMM datasets and
// resources. All calls require the EDX API key.
type EDXClient struct {
	client *http.Client
	cfg    types.EDXConfig
	apiKey string
	log    zerolog.Logger
}

// NewEDXClient builds the client. An empty apiKey is allowed at
// construction; calls fail with AuthError until one is configured.
func NewEDXClient(cfg types.EDXConfig, apiKey string, log zerolog.Logger) *EDXClient {
	return &EDXClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		apiKey: apiKey,
		log:    log.With().Str("source", "edx").Logger(),
	}
}

// SearchResources searches EDX resources by name, optionally filtered by
// file format (CSV, JSON, PDF, ...). Results keep CKAN's own order.
func (c *EDXClient) SearchResources(ctx context.Context, query, formatFilter string, limit, offset int) ([]types.Record, int, error) {
	if limit < 1 || limit > c.cfg.MaxResults {
		return nil, 0, &types.ValidationError{
			Param:  "limit",
			Reason: fmt.Sprintf("must be within [1, %d]", c.cfg.MaxResults),
		}
	}
	if offset < 0 {
		return nil, 0, &types.ValidationError{Param: "offset", Reason: "must not be negative"}
	}

	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var parts []string
	if query != "" {
		parts = append(parts, "name:"+query)
	}
	if formatFilter != "" {
		parts = append(parts, "format:"+formatFilter)
	}
	if len(parts) > 0 {
		params.Set("query", strings.Join(parts, " "))
	}

	result, err := c.action(ctx, "resource_search", params)
	if err != nil {
		return nil, 0, err
	}

	var payload struct {
		Count   int           `json:"count"`
		Results []edxResource `json:"results"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, 0, &types.ParseError{Source: "edx", Reason: "malformed resource_search result"}
	}

	records := make([]types.Record, 0, len(payload.Results))
	for _, res := range payload.Results {
		rec, ok := c.parseResource(res)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, payload.Count, nil
}

// GetResource fetches one resource by its CKAN id.
func (c *EDXClient) GetResource(ctx context.Context, resourceID string) (types.Record, error) {
	if strings.TrimSpace(resourceID) == "" {
		return types.Record{}, &types.ValidationError{Param: "resource_id", Reason: "must not be empty"}
	}

	result, err := c.action(ctx, "resource_show", url.Values{"id": {resourceID}})
	if err != nil {
		return types.Record{}, err
	}

	var res edxResource
	if err := json.Unmarshal(result, &res); err != nil {
		return types.Record{}, &types.ParseError{Source: "edx", Reason: "malformed resource_show result"}
	}
	rec, ok := c.parseResource(res)
	if !ok {
		return types.Record{}, &types.NotFoundError{Source: "edx", ID: resourceID}
	}
	return rec, nil
}

// GetDataset fetches one dataset (CKAN package) with its resource list.
func (c *EDXClient) GetDataset(ctx context.Context, datasetID string) (types.Record, []types.Record, error) {
	if strings.TrimSpace(datasetID) == "" {
		return types.Record{}, nil, &types.ValidationError{Param: "dataset_id", Reason: "must not be empty"}
	}

	result, err := c.action(ctx, "package_show", url.Values{"id": {datasetID}})
	if err != nil {
		return types.Record{}, nil, err
	}

	var pkg edxPackage
	if err := json.Unmarshal(result, &pkg); err != nil {
		return types.Record{}, nil, &types.ParseError{Source: "edx", Reason: "malformed package_show result"}
	}
	if pkg.ID == "" {
		return types.Record{}, nil, &types.NotFoundError{Source: "edx", ID: datasetID}
	}

	rec := types.Record{ID: pkg.ID, Title: firstNonEmpty(pkg.Title, pkg.Name), Source: "edx"}
	rec.SetText("description", pkg.Notes)
	rec.SetText("author", pkg.Author)
	var tags []string
	for _, tag := range pkg.Tags {
		if tag.Name != "" {
			tags = append(tags, tag.Name)
		}
	}
	rec.SetText("tags", strings.Join(tags, ", "))
	rec.SetText("created", pkg.MetadataCreated)
	rec.SetText("modified", pkg.MetadataModified)
	rec.SetStat("resource_count", float64(len(pkg.Resources)))

	resources := make([]types.Record, 0, len(pkg.Resources))
	for _, res := range pkg.Resources {
		if r, ok := c.parseResource(res); ok {
			resources = append(resources, r)
		}
	}
	return rec, resources, nil
}

// action performs one CKAN action call and unwraps the envelope. CKAN
// reports failures in-band with success=false; those surface as
// ProviderError with the API's short message.
func (c *EDXClient) action(ctx context.Context, name string, params url.Values) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, &types.AuthError{Provider: "edx", Reason: "EDX_API_KEY is not configured"}
	}

	reqURL := edxAPIBase + "/" + name
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "edx", Reason: err.Error()}
	}
	req.Header.Set("X-CKAN-API-Key", c.apiKey)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("action", name).Msg("EDX API request")
	body, err := httputil.Do(ctx, c.client, nil, req, "edx")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success bool            `json:"success"`
		Result  json.RawMessage `json:"result"`
		Error   struct {
			Message string `json:"message"`
			Type    string `json:"__type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.log.Warn().Err(err).Str("action", name).Msg("malformed CKAN envelope")
		return nil, &types.ParseError{Source: "edx", Reason: "malformed CKAN envelope"}
	}
	if !envelope.Success {
		reason := envelope.Error.Message
		if reason == "" {
			reason = envelope.Error.Type
		}
		if reason == "" {
			reason = "request rejected"
		}
		return nil, &types.ProviderError{Provider: "edx", Reason: reason}
	}
	return envelope.Result, nil
}

func (c *EDXClient) parseResource(res edxResource) (types.Record, bool) {
	if res.ID == "" {
		c.log.Warn().Msg("skipping resource without id")
		return types.Record{}, false
	}

	rec := types.Record{ID: res.ID, Title: res.Name, Source: "edx"}
	rec.SetText("description", res.Description)
	rec.SetText("format", res.Format)
	rec.SetText("url", res.URL)
	rec.SetText("created", res.Created)
	rec.SetText("last_modified", res.LastModified)
	rec.SetText("package_id", res.PackageID)
	if res.Size != nil {
		rec.SetStat("size_bytes", float64(*res.Size))
	}
	return rec, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CKAN JSON structures.
type edxResource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Format       string `json:"format"`
	Size         *int64 `json:"size"`
	URL          string `json:"url"`
	Created      string `json:"created"`
	LastModified string `json:"last_modified"`
	PackageID    string `json:"package_id"`
}

type edxPackage struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Title            string        `json:"title"`
	Notes            string        `json:"notes"`
	Author           string        `json:"author"`
	MetadataCreated  string        `json:"metadata_created"`
	MetadataModified string        `json:"metadata_modified"`
	Tags             []edxTag      `json:"tags"`
	Resources        []edxResource `json:"resources"`
}

type edxTag struct {
	Name string `json:"name"`
}
