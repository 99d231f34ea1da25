// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the CMM tool server:
// the normalized Record returned by every external source, ranking rows
// for statistics sources, and the configuration structs the CLI wires
// into each client at startup.
package types

import "sort"

// Record is the normalized representation of one item returned by an
// external data source: one paper, one dataset resource, or one
// production-statistics row. ID plus Source together uniquely address
// the original external resource.
//
// Text and Stats carry the descriptive and numeric fields that were
// actually present in the provider's payload. A field the provider did
// not return is simply absent from the map; clients never insert
// placeholder values that could be mistaken for real data.
type Record struct {
	// ID is the stable identifier from the source (arXiv ID, CKAN UUID,
	// BGS feature id, Comtrade row key).
	ID string `json:"id" yaml:"id"`

	// Title is the human-readable title or label.
	Title string `json:"title" yaml:"title"`

	// Source tags the external system that produced the record
	// (e.g. "arxiv", "bgs", "edx", "comtrade", "scholar").
	Source string `json:"source" yaml:"source"`

	// Authors lists authors in source order, when the source has them.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Text holds descriptive fields by name (abstract, notes, format,
	// country, units, ...).
	Text map[string]string `json:"text,omitempty" yaml:"text,omitempty"`

	// Stats holds numeric fields by name (year, quantity, trade_value, ...).
	Stats map[string]float64 `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// TextField returns the named descriptive field and whether it was present.
func (r Record) TextField(name string) (string, bool) {
	v, ok := r.Text[name]
	return v, ok
}

// StatField returns the named numeric field and whether it was present.
func (r Record) StatField(name string) (float64, bool) {
	v, ok := r.Stats[name]
	return v, ok
}

// SetText stores a descriptive field, allocating the map on first use.
// Empty values are dropped so absence stays observable.
func (r *Record) SetText(name, value string) {
	if value == "" {
		return
	}
	if r.Text == nil {
		r.Text = make(map[string]string)
	}
	r.Text[name] = value
}

// SetStat stores a numeric field, allocating the map on first use.
func (r *Record) SetStat(name string, value float64) {
	if r.Stats == nil {
		r.Stats = make(map[string]float64)
	}
	r.Stats[name] = value
}

// StatNames returns the numeric field names in sorted order, for stable
// caller-facing formatting.
func (r Record) StatNames() []string {
	names := make([]string, 0, len(r.Stats))
	for name := range r.Stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RankingEntry is one row of a ranked statistics aggregation: a country
// (or other entity), its aggregated value, and its share of the total.
type RankingEntry struct {
	Rank         int     `json:"rank" yaml:"rank"`
	Entity       string  `json:"entity" yaml:"entity"`
	ISO3         string  `json:"iso3,omitempty" yaml:"iso3,omitempty"`
	Value        float64 `json:"value" yaml:"value"`
	Units        string  `json:"units,omitempty" yaml:"units,omitempty"`
	Year         int     `json:"year" yaml:"year"`
	SharePercent float64 `json:"share_percent" yaml:"share_percent"`
}
