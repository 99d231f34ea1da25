// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// ostiCatalogFile is the catalog file name inside the configured data
// directory.
const ostiCatalogFile = "document_catalog.json"

// OSTICommodityCodes maps OSTI commodity category codes to full names.
var OSTICommodityCodes = map[string]string{
	"HREE": "Heavy Rare Earth Elements",
	"LREE": "Light Rare Earth Elements",
	"CO":   "Cobalt",
	"LI":   "Lithium",
	"GA":   "Gallium",
	"GR":   "Graphite",
	"NI":   "Nickel",
	"CU":   "Copper",
	"GE":   "Germanium",
	"OTH":  "Other Critical Materials",
}

// OSTIProductTypes enumerates the document types the catalog carries.
var OSTIProductTypes = []string{"Technical Report", "Journal Article"}

// OSTIQuery narrows a document search. Zero values mean "no filter".
type OSTIQuery struct {
	Query       string // substring match on title and description
	Commodity   string // one of OSTICommodityCodes' keys
	ProductType string
	YearFrom    int
	YearTo      int
	Limit       int
}

// OSTIStats summarizes the catalog for the overview tool.
type OSTIStats struct {
	Total         int            `json:"total"`
	ByCommodity   map[string]int `json:"by_commodity"`
	ByProductType map[string]int `json:"by_product_type"`
	YearFrom      int            `json:"year_from"`
	YearTo        int            `json:"year_to"`
}

// OSTIClient serves DOE technical reports and publications from a local
// document catalog, the snapshot format the OSTI corpus ships as. The
// catalog is read once on first use and held in memory.
type OSTIClient struct {
	cfg types.OSTIConfig
	log zerolog.Logger

	loadOnce sync.Once
	docs     []ostiDocument
	loadErr  error
}

// NewOSTIClient builds the client. An empty configured data path falls
// back to the OSTI_DATA_PATH environment variable; the catalog itself is
// not touched until the first query.
func NewOSTIClient(cfg types.OSTIConfig, log zerolog.Logger) *OSTIClient {
	if cfg.DataPath == "" {
		cfg.DataPath = strings.TrimSpace(os.Getenv("OSTI_DATA_PATH"))
	}
	return &OSTIClient{
		cfg: cfg,
		log: log.With().Str("source", "osti").Logger(),
	}
}

// SearchDocuments returns catalog documents matching the query, newest
// first.
func (c *OSTIClient) SearchDocuments(ctx context.Context, q OSTIQuery) ([]types.Record, error) {
	if q.Commodity != "" {
		code := strings.ToUpper(strings.TrimSpace(q.Commodity))
		if _, ok := OSTICommodityCodes[code]; !ok {
			return nil, &types.ValidationError{
				Param:  "commodity",
				Reason: "unknown commodity code; use list_osti_commodities",
			}
		}
		q.Commodity = code
	}
	if q.YearFrom != 0 && q.YearTo != 0 && q.YearFrom > q.YearTo {
		return nil, &types.ValidationError{Param: "year_from", Reason: "must not exceed year_to"}
	}
	if q.Limit <= 0 || q.Limit > c.cfg.MaxResults {
		q.Limit = c.cfg.MaxResults
	}

	docs, err := c.catalog()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Query))
	var records []types.Record
	for _, doc := range docs {
		if needle != "" &&
			!strings.Contains(strings.ToLower(doc.Title), needle) &&
			!strings.Contains(strings.ToLower(doc.Description), needle) {
			continue
		}
		if q.Commodity != "" && !strings.EqualFold(doc.CommodityCategory, q.Commodity) {
			continue
		}
		if q.ProductType != "" && !strings.EqualFold(doc.ProductType, q.ProductType) {
			continue
		}
		year := yearFromDate(doc.PublicationDate)
		if (q.YearFrom != 0 && (year == 0 || year < q.YearFrom)) ||
			(q.YearTo != 0 && (year == 0 || year > q.YearTo)) {
			continue
		}

		rec, ok := c.parseDocument(doc)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	sortRecordsByYearDesc(records)
	if len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, nil
}

// GetDocument returns one catalog document by its OSTI id.
func (c *OSTIClient) GetDocument(ctx context.Context, ostiID string) (types.Record, error) {
	id := strings.TrimSpace(ostiID)
	if id == "" {
		return types.Record{}, &types.ValidationError{Param: "osti_id", Reason: "must not be empty"}
	}

	docs, err := c.catalog()
	if err != nil {
		return types.Record{}, err
	}
	for _, doc := range docs {
		if doc.OSTIID == id {
			if rec, ok := c.parseDocument(doc); ok {
				return rec, nil
			}
			break
		}
	}
	return types.Record{}, &types.NotFoundError{Source: "osti", ID: id}
}

// DocumentsByCommodity returns documents tagged with one commodity
// category, newest first.
func (c *OSTIClient) DocumentsByCommodity(ctx context.Context, commodity string, limit int) ([]types.Record, error) {
	return c.SearchDocuments(ctx, OSTIQuery{Commodity: commodity, Limit: limit})
}

// RecentDocuments returns the most recently published documents.
func (c *OSTIClient) RecentDocuments(ctx context.Context, limit int) ([]types.Record, error) {
	return c.SearchDocuments(ctx, OSTIQuery{Limit: limit})
}

// Statistics summarizes the catalog: document counts by commodity and
// product type, and the publication year range.
func (c *OSTIClient) Statistics(ctx context.Context) (OSTIStats, error) {
	docs, err := c.catalog()
	if err != nil {
		return OSTIStats{}, err
	}

	stats := OSTIStats{
		Total:         len(docs),
		ByCommodity:   make(map[string]int),
		ByProductType: make(map[string]int),
	}
	for _, doc := range docs {
		if doc.CommodityCategory != "" {
			stats.ByCommodity[strings.ToUpper(doc.CommodityCategory)]++
		}
		if doc.ProductType != "" {
			stats.ByProductType[doc.ProductType]++
		}
		if year := yearFromDate(doc.PublicationDate); year != 0 {
			if stats.YearFrom == 0 || year < stats.YearFrom {
				stats.YearFrom = year
			}
			if year > stats.YearTo {
				stats.YearTo = year
			}
		}
	}
	return stats, nil
}

// OSTICommodities returns the commodity codes, sorted.
func OSTICommodities() []string {
	codes := make([]string, 0, len(OSTICommodityCodes))
	for code := range OSTICommodityCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// catalog loads the document catalog on first use. A missing or unusable
// catalog disables only the OSTI tools.
func (c *OSTIClient) catalog() ([]ostiDocument, error) {
	c.loadOnce.Do(func() {
		if c.cfg.DataPath == "" {
			c.loadErr = &types.ProviderError{
				Provider: "osti",
				Reason:   "OSTI_DATA_PATH is not configured",
			}
			return
		}

		path := filepath.Join(c.cfg.DataPath, ostiCatalogFile)
		data, err := os.ReadFile(path)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("catalog unreadable")
			c.loadErr = &types.ProviderError{
				Provider: "osti",
				Reason:   "document catalog not found at " + path,
			}
			return
		}

		// The catalog is either a bare document array or an envelope with
		// a documents field.
		var docs []ostiDocument
		if err := json.Unmarshal(data, &docs); err != nil {
			var envelope struct {
				Documents []ostiDocument `json:"documents"`
			}
			if err := json.Unmarshal(data, &envelope); err != nil {
				c.loadErr = &types.ParseError{Source: "osti", Reason: "malformed document catalog"}
				return
			}
			docs = envelope.Documents
		}
		c.docs = docs
		c.log.Debug().Int("documents", len(docs)).Str("path", path).Msg("catalog loaded")
	})
	return c.docs, c.loadErr
}

// parseDocument normalizes one catalog entry. Documents without an id or
// title are unusable and skipped.
func (c *OSTIClient) parseDocument(doc ostiDocument) (types.Record, bool) {
	if doc.OSTIID == "" || doc.Title == "" {
		c.log.Warn().Msg("skipping catalog document without id or title")
		return types.Record{}, false
	}

	rec := types.Record{
		ID:      doc.OSTIID,
		Title:   doc.Title,
		Source:  "osti",
		Authors: doc.Authors,
	}
	rec.SetText("description", doc.Description)
	rec.SetText("publication_date", doc.PublicationDate)
	rec.SetText("commodity_category", strings.ToUpper(doc.CommodityCategory))
	rec.SetText("doi", doc.DOI)
	rec.SetText("product_type", doc.ProductType)
	rec.SetText("subjects", strings.Join(doc.Subjects, "; "))
	rec.SetText("research_orgs", strings.Join(doc.ResearchOrgs, "; "))
	rec.SetText("sponsor_orgs", strings.Join(doc.SponsorOrgs, "; "))

	if year := yearFromDate(doc.PublicationDate); year != 0 {
		rec.SetStat("year", float64(year))
	}
	return rec, true
}

// yearFromDate extracts the first four-digit year from a date string.
// Catalog dates appear both as "2023-05-01" and "5/1/2023".
func yearFromDate(s string) int {
	for i := 0; i+4 <= len(s); i++ {
		if !isDigit(s[i]) {
			continue
		}
		if isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			if i+4 < len(s) && isDigit(s[i+4]) {
				continue
			}
			year := int(s[i]-'0')*1000 + int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			if year >= 1900 && year <= 2100 {
				return year
			}
		}
	}
	return 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// sortRecordsByYearDesc orders records newest first; records without a
// year sort last, ties break on publication date then id for stability.
func sortRecordsByYearDesc(records []types.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		yi, _ := records[i].StatField("year")
		yj, _ := records[j].StatField("year")
		if yi != yj {
			return yi > yj
		}
		di, _ := records[i].TextField("publication_date")
		dj, _ := records[j].TextField("publication_date")
		if di != dj {
			return di > dj
		}
		return records[i].ID < records[j].ID
	})
}

// ostiDocument mirrors one catalog entry.
type ostiDocument struct {
	OSTIID            string   `json:"osti_id"`
	Title             string   `json:"title"`
	Authors           []string `json:"authors"`
	PublicationDate   string   `json:"publication_date"`
	Description       string   `json:"description"`
	Subjects          []string `json:"subjects"`
	CommodityCategory string   `json:"commodity_category"`
	DOI               string   `json:"doi"`
	ProductType       string   `json:"product_type"`
	ResearchOrgs      []string `json:"research_orgs"`
	SponsorOrgs       []string `json:"sponsor_orgs"`
}
