// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/pdiddy/paperfeed/pkg/types"
)

// ProxyResponse is the JSON body served by the paperfeed proxy.
// A total failure carries Error and Message with no papers; UsedFallback
// marks papers that are not a fresh feed answer.
type ProxyResponse struct {
	Papers       []types.Paper `json:"papers"`
	Error        string        `json:"error,omitempty"`
	Message      string        `json:"message,omitempty"`
	UsedFallback bool          `json:"usedFallback,omitempty"`
}

// ProxyGateway fetches pages through a paperfeed proxy (GET /api/arxiv).
type ProxyGateway struct {
	Client *http.Client

	// URL is the full proxy endpoint, e.g. "http://localhost:8080/api/arxiv".
	URL string

	// token produces the cache-busting parameter; tests pin it.
	token func() string
}

// NewProxyGateway returns a gateway for the proxy endpoint at rawURL.
func NewProxyGateway(rawURL string, client *http.Client) *ProxyGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &ProxyGateway{Client: client, URL: rawURL, token: uuid.NewString}
}

// Fetch requests one page from the proxy.
func (g *ProxyGateway) Fetch(ctx context.Context, req Request) (Page, error) {
	req, err := req.normalize()
	if err != nil {
		return Page{}, err
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	token := uuid.NewString
	if g.token != nil {
		token = g.token
	}
	params := url.Values{
		"query":      {req.Query},
		"start":      {strconv.Itoa(req.Offset)},
		"maxResults": {strconv.Itoa(req.Size)},
		"sortBy":     {req.Sort.Field},
		"sortOrder":  {req.Sort.Order},
		"_":          {token()},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	httpReq.Header.Set("Pragma", "no-cache")

	resp, err := g.Client.Do(httpReq)
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
	if len(bytes.TrimSpace(body)) == 0 {
		return Page{}, &FetchError{Reason: ReasonEmptyBody}
	}

	var pr ProxyResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Page{}, &FetchError{Reason: ReasonParse, Err: err}
	}

	if pr.Error != "" && !pr.UsedFallback {
		msg := pr.Message
		if msg == "" {
			msg = pr.Error
		}
		return Page{}, &FetchError{Reason: ReasonUpstream, Err: errors.New(msg)}
	}

	page := Page{
		Records:      make([]types.Paper, 0, len(pr.Papers)),
		UsedFallback: pr.UsedFallback,
	}
	for _, p := range pr.Papers {
		if p.ID == "" {
			page.Dropped++
			continue
		}
		if p.Origin == "" {
			p.Origin = types.OriginUpstream
		}
		page.Records = append(page.Records, p)
	}
	return page, nil
}
