// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxy

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperfeed/internal/feed"
	"github.com/pdiddy/paperfeed/internal/query"
	"github.com/pdiddy/paperfeed/pkg/types"
)

const (
	defaultMaxResults = 50
	maxMaxResults     = 2000

	upstreamFailure = "Failed to fetch papers from arXiv"
)

// searchHandler serves GET /api/arxiv.
//
// A failed upstream call is still a 200 with an empty papers list and the
// error fields set, which is what clients of the endpoint expect. Only
// malformed parameters produce a 400.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())
	params := r.URL.Query()

	req, filter, err := s.parseSearch(params)
	if err != nil {
		s.opts.Metrics.RecordProxyRequest("bad_request", time.Since(start).Seconds())
		writeJSON(w, http.StatusBadRequest, feed.ProxyResponse{
			Papers:  []types.Paper{},
			Error:   "invalid request",
			Message: err.Error(),
		})
		return
	}

	page, err := s.gateway.Fetch(r.Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("reason", string(feed.ReasonOf(err))).Str("query", req.Query).Msg("upstream fetch failed")
		s.opts.Metrics.RecordProxyRequest("upstream_error", time.Since(start).Seconds())
		writeJSON(w, http.StatusOK, feed.ProxyResponse{
			Papers:  []types.Paper{},
			Error:   upstreamFailure,
			Message: err.Error(),
		})
		return
	}

	papers := filter.apply(page.Records)
	if papers == nil {
		papers = []types.Paper{}
	}
	log.Debug().
		Str("query", req.Query).
		Int("offset", req.Offset).
		Int("fetched", len(page.Records)).
		Int("returned", len(papers)).
		Msg("search served")
	s.opts.Metrics.RecordProxyRequest("ok", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, feed.ProxyResponse{Papers: papers})
}

// parseSearch maps query parameters to a feed request and the category
// filter applied to its results. The cache-busting "_" parameter is ignored.
func (s *Server) parseSearch(params map[string][]string) (feed.Request, categoryFilter, error) {
	get := func(k string) string {
		if v := params[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req := feed.Request{
		Size:    defaultMaxResults,
		Sort:    feed.Sort{Field: get("sortBy"), Order: get("sortOrder")},
		Timeout: s.opts.Timeout,
	}
	if v := get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, categoryFilter{}, errInvalidParam("start", v)
		}
		req.Offset = n
	}
	if v := get("maxResults"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, categoryFilter{}, errInvalidParam("maxResults", v)
		}
		req.Size = min(n, maxMaxResults)
	}
	switch req.Sort.Field {
	case "", feed.SortSubmitted, feed.SortLastUpdated, feed.SortRelevance:
	default:
		return req, categoryFilter{}, errInvalidParam("sortBy", req.Sort.Field)
	}
	switch req.Sort.Order {
	case "", feed.OrderAscending, feed.OrderDescending:
	default:
		return req, categoryFilter{}, errInvalidParam("sortOrder", req.Sort.Order)
	}

	var filter categoryFilter
	if subs := splitList(get("subcategories")); len(subs) > 0 {
		scope, err := query.Build("", subs)
		if err != nil {
			return req, categoryFilter{}, err
		}
		req.Query = scope.Expression
		filter.contains = scope.Categories
	} else if q := get("query"); q != "" {
		req.Query = q
	} else {
		scope, _ := query.Build("", nil, s.opts.Roots...)
		req.Query = scope.Expression
		for _, root := range s.opts.Roots {
			filter.prefixes = append(filter.prefixes, strings.TrimSuffix(root, ".*")+".")
		}
	}
	return req, filter, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}

// categoryFilter keeps papers with at least one matching category.
// contains matches case-insensitively anywhere in a code; prefixes match
// its start. An empty filter keeps everything.
type categoryFilter struct {
	contains []string
	prefixes []string
}

func (f categoryFilter) apply(papers []types.Paper) []types.Paper {
	if len(f.contains) == 0 && len(f.prefixes) == 0 {
		return papers
	}
	out := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if f.match(p.Categories) {
			out = append(out, p)
		}
	}
	return out
}

func (f categoryFilter) match(categories []string) bool {
	for _, c := range categories {
		lc := strings.ToLower(c)
		for _, want := range f.contains {
			if strings.Contains(lc, strings.ToLower(want)) {
				return true
			}
		}
		for _, prefix := range f.prefixes {
			if strings.HasPrefix(lc, strings.ToLower(prefix)) {
				return true
			}
		}
	}
	return false
}
