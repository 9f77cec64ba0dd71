// Package search backs the editor's "add item" picker. It merges matching
// content records, content-type overviews and taxonomy terms into one flat
// list of results.
package search

import (
	"context"
	"strings"
)

// Result kinds.
const (
	KindRecord   = "record"
	KindOverview = "overview"
	KindTaxonomy = "taxonomy"
)

// OverviewType is the type label of content-type listing results.
const OverviewType = "Overview"

// DefaultTaxonomyIcon is used for taxonomy terms whose taxonomy names no icon.
const DefaultTaxonomyIcon = "fa-tag"

// ExcerptLength caps the body of record results, in characters.
const ExcerptLength = 100

// Result is one picker entry. Every field is always present in JSON.
type Result struct {
	Kind        string `json:"-"`
	Title       string `json:"title"`
	Image       string `json:"image"`
	Body        string `json:"body"`
	Link        string `json:"link"`
	ContentType string `json:"contenttype"`
	Type        string `json:"type"`
	Icon        string `json:"icon"`
	ID          string `json:"id"`
}

// Record is a content record as read from the content index.
type Record struct {
	ID          string `validate:"required"`
	ContentType string `validate:"required"`
	Slug        string
	Title       string
	Image       string
	Excerpt     string
	// Link overrides the canonical /<singular_slug>/<slug> link when set.
	Link string
}

// ContentIndex finds content records matching a free-text query.
type ContentIndex interface {
	SearchContent(ctx context.Context, query string) ([]Record, error)
}

// NormalizeIcon turns "fa:bars" style icon names into CSS classes.
func NormalizeIcon(icon string) string {
	return strings.ReplaceAll(icon, ":", "-")
}

// Excerpt trims s to at most n characters, on a rune boundary.
func Excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

func matches(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
