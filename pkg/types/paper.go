// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paperfeed: the paper
// record that flows from the feed to the display, and the configuration
// of every component.
package types

import "time"

// Origin records where a Paper came from. Callers that must not mix
// locally generated records into an authentic stream check this field.
type Origin string

const (
	// OriginUpstream marks a record translated from the feed.
	OriginUpstream Origin = "upstream"

	// OriginPlaceholder marks a locally generated stand-in produced when
	// the feed could not be reached.
	OriginPlaceholder Origin = "placeholder"
)

// Default text used when the feed omits a field.
const (
	DefaultTitle    = "Untitled Paper"
	DefaultAbstract = "No abstract available"
	DefaultAuthor   = "Unknown Author"
)

// Paper is one discovered item. ID is the canonical entry URI from the
// feed and is the only key used for deduplication; two papers with the
// same ID are the same paper regardless of their other fields.
type Paper struct {
	// ID is the canonical entry URI (e.g. "http://arxiv.org/abs/2301.07041v1").
	ID string `json:"id" yaml:"id"`

	// Title is whitespace-collapsed and trimmed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in feed order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is whitespace-collapsed and trimmed.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the first submission time, nil when the feed omits it.
	Published *time.Time `json:"published" yaml:"published"`

	// Updated is the last revision time; it falls back to Published.
	Updated *time.Time `json:"updated" yaml:"updated"`

	// Categories holds taxonomy codes in feed order without duplicates.
	Categories []string `json:"categories" yaml:"categories"`

	// PDFURL is the document link, derived from ID when the feed has none.
	PDFURL string `json:"pdfUrl" yaml:"pdf_url"`

	// Origin distinguishes feed data from placeholders.
	Origin Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// IsPlaceholder reports whether the paper was generated locally.
func (p Paper) IsPlaceholder() bool {
	return p.Origin == OriginPlaceholder
}
