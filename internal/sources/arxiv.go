// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources contains one client per external data source. Each
// client builds a provider-native query, issues the HTTP request, and
// parses the payload into normalized Records. Parsing is tolerant per
// field: a missing field is left absent from the Record, and an entry
// with no usable identifier or title is skipped with a stderr warning.
package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/cmm-toolserver/internal/httputil"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivSortOrders enumerates the sort keys the arXiv API accepts.
var ArxivSortOrders = []string{"relevance", "lastUpdatedDate", "submittedDate"}

// arXiv IDs: new-style "2301.07041" (optional version suffix) or
// legacy "cs.AI/0001001".
var (
	arxivNewID    = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	arxivLegacyID = regexp.MustCompile(`^[a-z-]+(\.[A-Z]{2})?/\d{7}(v\d+)?$`)
)

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	client  *http.Client
	cfg     types.ArxivConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewArxivClient builds the client. The rate limiter enforces the
// configured minimum spacing between calls (arXiv asks for ~3 s).
func NewArxivClient(cfg types.ArxivConfig, log zerolog.Logger) *ArxivClient {
	var limiter *rate.Limiter
	if cfg.MinRequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1)
	}
	return &ArxivClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: limiter,
		log:     log.With().Str("source", "arxiv").Logger(),
	}
}

// Search queries arXiv and returns normalized Records in the provider's
// ranking order. maxResults must be within [1, cfg.MaxResults]; sortBy
// must be one of ArxivSortOrders.
func (c *ArxivClient) Search(ctx context.Context, query string, maxResults int, sortBy string) ([]types.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &types.ValidationError{Param: "query", Reason: "must not be empty"}
	}
	if maxResults < 1 || maxResults > c.cfg.MaxResults {
		return nil, &types.ValidationError{
			Param:  "max_results",
			Reason: fmt.Sprintf("must be within [1, %d]", c.cfg.MaxResults),
		}
	}
	if !containsString(ArxivSortOrders, sortBy) {
		return nil, &types.ValidationError{
			Param:  "sort_by",
			Reason: fmt.Sprintf("must be one of %s", strings.Join(ArxivSortOrders, ", ")),
		}
	}

	// Bare terms search all fields; queries with field prefixes
	// ("ti:", "au:", ...) pass through unchanged.
	searchQuery := query
	if !strings.Contains(query, ":") {
		searchQuery = "all:" + query
	}

	params := url.Values{
		"search_query": {searchQuery},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {sortBy},
		"sortOrder":    {"descending"},
	}

	feed, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		rec, ok := c.parseEntry(entry)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetByID fetches one paper. Malformed identifiers fail before any
// network call; a format-valid identifier that matches nothing returns
// NotFoundError.
func (c *ArxivClient) GetByID(ctx context.Context, id string) (types.Record, error) {
	cleanID, err := ValidateArxivID(id)
	if err != nil {
		return types.Record{}, err
	}

	feed, err := c.fetch(ctx, url.Values{"id_list": {cleanID}})
	if err != nil {
		return types.Record{}, err
	}

	for _, entry := range feed.Entries {
		if rec, ok := c.parseEntry(entry); ok {
			return rec, nil
		}
	}
	return types.Record{}, &types.NotFoundError{Source: "arxiv", ID: cleanID}
}

// ValidateArxivID checks the identifier format and returns it with any
// version suffix stripped.
func ValidateArxivID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !arxivNewID.MatchString(id) && !arxivLegacyID.MatchString(id) {
		return "", &types.ValidationError{
			Param:  "arxiv_id",
			Reason: fmt.Sprintf("%q is not a valid arXiv identifier", id),
		}
	}
	return stripArxivVersion(id), nil
}

func (c *ArxivClient) fetch(ctx context.Context, params url.Values) (*arxivFeed, error) {
	reqURL := arxivAPIBase + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.NetworkError{Source: "arxiv", Reason: err.Error()}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.log.Debug().Str("url", reqURL).Msg("arXiv API request")
	body, err := httputil.Do(ctx, c.client, c.limiter, req, "arxiv")
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		c.log.Warn().Err(err).Msg("malformed Atom feed")
		return nil, &types.ParseError{Source: "arxiv", Reason: "malformed Atom feed"}
	}
	return &feed, nil
}

// parseEntry normalizes one Atom entry. Entries with no extractable ID
// or title are reported unusable.
func (c *ArxivClient) parseEntry(entry arxivEntry) (types.Record, bool) {
	id := extractArxivID(entry.ID)
	title := strings.Join(strings.Fields(entry.Title), " ")
	if id == "" || title == "" {
		c.log.Warn().Str("entry_id", entry.ID).Msg("skipping entry without id or title")
		return types.Record{}, false
	}

	rec := types.Record{ID: id, Title: title, Source: "arxiv"}
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	rec.SetText("abstract", strings.Join(strings.Fields(entry.Summary), " "))
	rec.SetText("published", strings.TrimSpace(entry.Published))

	var categories []string
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}
	rec.SetText("categories", strings.Join(categories, ", "))

	pdf := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" {
			pdf = link.Href
			break
		}
	}
	if pdf == "" {
		pdf = "https://arxiv.org/pdf/" + id
	}
	rec.SetText("pdf_url", pdf)

	return rec, true
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
	Links      []arxivLink     `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return stripArxivVersion(idURL[idx+len(prefix):])
}

// stripArxivVersion removes a trailing version suffix ("v1", "v2").
func stripArxivVersion(id string) string {
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
