// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfeed/internal/httputil"
	"github.com/pdiddy/paperfeed/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const sampleAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <id>http://arxiv.org/api/abc</id>
  <opensearch:totalResults>1234</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <updated>2023-01-18T10:00:00Z</updated>
    <published>2023-01-17T18:30:00Z</published>
    <title>Attention
      Is All   You Need</title>
    <summary>  We propose a new
   architecture.  </summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name> Noam Shazeer </name></author>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL"/>
    <category term="cs.CL"/>
    <category term="cs.LG"/>
    <category term="cs.CL"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <published>2023-02-01T00:00:00Z</published>
    <title></title>
  </entry>
  <entry>
    <title>Entry without id</title>
  </entry>
</feed>`

func TestParseAtomTranslatesEntries(t *testing.T) {
	page, err := ParseAtom([]byte(sampleAtom))
	require.NoError(t, err)

	assert.Equal(t, 1234, page.Total)
	assert.Equal(t, 1, page.Dropped)
	require.Len(t, page.Records, 2)

	p := page.Records[0]
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", p.ID)
	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.Equal(t, "We propose a new architecture.", p.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, p.Authors)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, p.Categories)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v1", p.PDFURL)
	assert.Equal(t, types.OriginUpstream, p.Origin)
	require.NotNil(t, p.Published)
	require.NotNil(t, p.Updated)
	assert.Equal(t, 2023, p.Published.Year())
	assert.Equal(t, 18, p.Updated.Day())
}

func TestParseAtomDefaults(t *testing.T) {
	page, err := ParseAtom([]byte(sampleAtom))
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	p := page.Records[1]
	assert.Equal(t, types.DefaultTitle, p.Title)
	assert.Equal(t, types.DefaultAbstract, p.Abstract)
	assert.Equal(t, []string{types.DefaultAuthor}, p.Authors)
	assert.Empty(t, p.Categories)
	assert.Equal(t, "http://arxiv.org/pdf/2302.00001v2", p.PDFURL, "derived from id")
	require.NotNil(t, p.Updated)
	assert.Equal(t, p.Published, p.Updated, "updated falls back to published")
}

func TestParseAtomNoDates(t *testing.T) {
	doc := `<feed><entry><id>urn:x:1</id><title>T</title></entry></feed>`
	page, err := ParseAtom([]byte(doc))
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	assert.Nil(t, page.Records[0].Published)
	assert.Nil(t, page.Records[0].Updated)
	assert.Equal(t, "", page.Records[0].PDFURL, "no link and no /abs/ id")
}

func TestParseAtomEmptyFeed(t *testing.T) {
	page, err := ParseAtom([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestParseAtomFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Reason
	}{
		{"empty body", "", ReasonEmptyBody},
		{"whitespace body", "  \n ", ReasonEmptyBody},
		{"not xml", "definitely not xml", ReasonParse},
		{"wrong root", "<html><body>oops</body></html>", ReasonParse},
		{"truncated", "<feed><entry><id>x</id>", ReasonParse},
		{"api error entry", `<feed><entry><id>http://arxiv.org/api/errors#incorrect_id_format</id><summary>bad query</summary></entry></feed>`, ReasonUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAtom([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func withArxivServer(t *testing.T, h http.HandlerFunc) *ArxivGateway {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })

	return &ArxivGateway{Client: ts.Client(), UserAgent: "test/0.1"}
}

func TestArxivFetchRequestParams(t *testing.T) {
	var captured *http.Request
	g := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, sampleAtom)
	})

	page, err := g.Fetch(context.Background(), Request{
		Query:  `cat:cs.LG AND ti:"graph"`,
		Offset: 100,
		Size:   50,
	})
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)

	q := captured.URL.Query()
	assert.Equal(t, `cat:cs.LG AND ti:"graph"`, q.Get("search_query"))
	assert.Equal(t, "100", q.Get("start"))
	assert.Equal(t, "50", q.Get("max_results"))
	assert.Equal(t, SortSubmitted, q.Get("sortBy"))
	assert.Equal(t, OrderDescending, q.Get("sortOrder"))
	assert.Equal(t, "test/0.1", captured.Header.Get("User-Agent"))
}

func TestArxivFetchCustomSort(t *testing.T) {
	var captured *http.Request
	g := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `<feed></feed>`)
	})

	_, err := g.Fetch(context.Background(), Request{
		Query: "cat:cs.*",
		Size:  10,
		Sort:  Sort{Field: SortLastUpdated, Order: OrderAscending},
	})
	require.NoError(t, err)
	assert.Equal(t, SortLastUpdated, captured.URL.Query().Get("sortBy"))
	assert.Equal(t, OrderAscending, captured.URL.Query().Get("sortOrder"))
}

func TestArxivFetchUpstreamError(t *testing.T) {
	g := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := g.Fetch(context.Background(), Request{Query: "cat:cs.*", Size: 10})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonUpstream, fe.Reason)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
}

func TestArxivFetchRetries429(t *testing.T) {
	var calls int32
	g := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleAtom)
	})

	page, err := g.Fetch(context.Background(), Request{Query: "cat:cs.*", Size: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestArxivFetchEmptyBody(t *testing.T) {
	g := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := g.Fetch(context.Background(), Request{Query: "cat:cs.*", Size: 10})
	assert.Equal(t, ReasonEmptyBody, ReasonOf(err))
}

func TestArxivFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	g := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := g.Fetch(context.Background(), Request{Query: "cat:cs.*", Size: 10, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestArxivFetchNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	g := &ArxivGateway{Client: &http.Client{}, Endpoint: url}
	_, err := g.Fetch(context.Background(), Request{Query: "cat:cs.*", Size: 10})
	require.Error(t, err)
	assert.Equal(t, ReasonNetwork, ReasonOf(err))
}

func TestFetchRejectsInvalidRequest(t *testing.T) {
	var calls int32
	g := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{Size: 10}},
		{"negative offset", Request{Query: "q", Offset: -1, Size: 10}},
		{"zero size", Request{Query: "q"}},
		{"bad sort field", Request{Query: "q", Size: 1, Sort: Sort{Field: "citations"}}},
		{"bad sort order", Request{Query: "q", Size: 1, Sort: Sort{Order: "sideways"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Fetch(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, ReasonInvalidRequest, ReasonOf(err))
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "invalid requests never reach the feed")
}

func TestNewArxivGateway(t *testing.T) {
	cfg := types.DefaultConfig().Feed
	g := NewArxivGateway(cfg)
	assert.Equal(t, cfg.Endpoint, g.Endpoint)
	assert.Equal(t, cfg.UserAgent, g.UserAgent)
	assert.NotNil(t, g.Limiter)
}
