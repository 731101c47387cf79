// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperfeed/internal/httputil"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// maxBodyBytes bounds how much of a feed response is read.
const maxBodyBytes = 10 << 20

// ArxivGateway queries the arXiv Atom API directly.
type ArxivGateway struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string

	// Limiter spaces requests to the feed; nil means unthrottled.
	Limiter *rate.Limiter
}

// NewArxivGateway builds a gateway from cfg.
func NewArxivGateway(cfg types.FeedConfig) *ArxivGateway {
	return &ArxivGateway{
		Client:    &http.Client{},
		Endpoint:  cfg.Endpoint,
		UserAgent: cfg.UserAgent,
		Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond),
	}
}

// Fetch issues one request and translates the returned Atom feed.
func (g *ArxivGateway) Fetch(ctx context.Context, req Request) (Page, error) {
	req, err := req.normalize()
	if err != nil {
		return Page{}, err
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = arxivAPIBase
	}
	params := url.Values{
		"search_query": {req.Query},
		"start":        {strconv.Itoa(req.Offset)},
		"max_results":  {strconv.Itoa(req.Size)},
		"sortBy":       {req.Sort.Field},
		"sortOrder":    {req.Sort.Order},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/atom+xml")
	httpReq.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if g.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.UserAgent)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, g.Limiter, httpReq, 1)
	if err != nil {
		return Page{}, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, &FetchError{Reason: ReasonUpstream, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, transportError(err)
	}
	return ParseAtom(body)
}

// ParseAtom translates an Atom document into a Page. Entries without an
// identifier are dropped; a document that cannot be decoded at all is a
// ParseError.
func ParseAtom(body []byte) (Page, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Page{}, &FetchError{Reason: ReasonEmptyBody}
	}

	var doc atomFeed
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Page{}, &FetchError{Reason: ReasonParse, Err: err}
	}

	// The API reports a bad query as a single entry under /api/errors.
	if len(doc.Entries) == 1 && strings.Contains(doc.Entries[0].ID, "/api/errors") {
		return Page{}, &FetchError{
			Reason: ReasonUpstream,
			Err:    fmt.Errorf("feed rejected query: %s", normalizeWhitespace(doc.Entries[0].Summary)),
		}
	}

	page := Page{
		Records: make([]types.Paper, 0, len(doc.Entries)),
		Total:   doc.TotalResults,
	}
	for i := range doc.Entries {
		p, ok := translate(&doc.Entries[i])
		if !ok {
			page.Dropped++
			continue
		}
		page.Records = append(page.Records, p)
	}
	return page, nil
}

// translate converts an Atom entry to a Paper, applying field defaults.
func translate(e *atomEntry) (types.Paper, bool) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:       id,
		Title:    normalizeWhitespace(e.Title),
		Abstract: normalizeWhitespace(e.Summary),
		Origin:   types.OriginUpstream,
	}
	if p.Title == "" {
		p.Title = types.DefaultTitle
	}
	if p.Abstract == "" {
		p.Abstract = types.DefaultAbstract
	}

	for _, a := range e.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	if len(p.Authors) == 0 {
		p.Authors = []string{types.DefaultAuthor}
	}

	p.Published = parseTime(e.Published)
	p.Updated = parseTime(e.Updated)
	if p.Updated == nil {
		p.Updated = p.Published
	}

	seen := make(map[string]bool, len(e.Categories))
	p.Categories = make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		term := strings.TrimSpace(c.Term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		p.Categories = append(p.Categories, term)
	}

	for _, l := range e.Links {
		if l.Title == "pdf" && l.Href != "" {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" && strings.Contains(id, "/abs/") {
		p.PDFURL = strings.Replace(id, "/abs/", "/pdf/", 1)
	}
	return p, true
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// normalizeWhitespace trims and collapses runs of whitespace, including
// the newlines arXiv embeds in titles and abstracts.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}
