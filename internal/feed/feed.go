// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed performs single round trips to the paper feed and
// translates its documents into paper records. It does not retry at the
// page level or cache anything; see package retry for the resilience policy.
package feed

import (
	"context"
	"strings"
	"time"

	"github.com/pdiddy/paperfeed/pkg/types"
)

// Gateway fetches one page of papers.
type Gateway interface {
	Fetch(ctx context.Context, req Request) (Page, error)
}

// Sort fields and orders accepted by the feed.
const (
	SortRelevance   = "relevance"
	SortLastUpdated = "lastUpdatedDate"
	SortSubmitted   = "submittedDate"

	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// Sort is a sort directive: a field and a direction.
type Sort struct {
	Field string
	Order string
}

// DefaultSort returns newest submissions first.
func DefaultSort() Sort {
	return Sort{Field: SortSubmitted, Order: OrderDescending}
}

// Request describes one page request.
type Request struct {
	// Query is the feed search expression.
	Query string

	// Offset is the number of items to skip.
	Offset int

	// Size is the maximum number of items to return.
	Size int

	// Sort defaults to DefaultSort when its fields are empty.
	Sort Sort

	// Timeout is the hard deadline for the round trip. Zero means no
	// deadline beyond ctx.
	Timeout time.Duration
}

// ValidSort reports whether field and order name a sort the feed accepts.
// Empty values are valid and take the defaults.
func ValidSort(field, order string) bool {
	switch field {
	case "", SortRelevance, SortLastUpdated, SortSubmitted:
	default:
		return false
	}
	switch order {
	case "", OrderAscending, OrderDescending:
		return true
	}
	return false
}

// normalize fills defaults and rejects requests that must not reach the
// feed. Rejections carry ReasonInvalidRequest.
func (r Request) normalize() (Request, error) {
	if strings.TrimSpace(r.Query) == "" {
		return r, invalidRequest("empty feed query")
	}
	if r.Offset < 0 {
		return r, invalidRequest("offset must not be negative, got %d", r.Offset)
	}
	if r.Size <= 0 {
		return r, invalidRequest("page size must be positive, got %d", r.Size)
	}
	if !ValidSort(r.Sort.Field, r.Sort.Order) {
		return r, invalidRequest("unsupported sort %q %q", r.Sort.Field, r.Sort.Order)
	}
	if r.Sort.Field == "" {
		r.Sort.Field = SortSubmitted
	}
	if r.Sort.Order == "" {
		r.Sort.Order = OrderDescending
	}
	return r, nil
}

// Page is the successful outcome of one round trip. An empty page is a
// valid "no results at this offset" answer, distinct from a failure.
type Page struct {
	Records []types.Paper

	// Total is the feed's reported result count, zero when unknown.
	Total int

	// Dropped counts entries that could not be translated.
	Dropped int

	// UsedFallback is set when an intermediate proxy reported that it
	// served fallback data instead of a fresh feed answer.
	UsedFallback bool
}
