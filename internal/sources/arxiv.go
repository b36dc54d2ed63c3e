// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. Records are preprints.
type Arxiv struct {
	Client   *http.Client
	Endpoint string
}

// Search queries arXiv and returns API records.
func (a *Arxiv) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, errors.New("empty arXiv query")
	}

	base := a.Endpoint
	if base == "" {
		base = arxivAPIBase
	}
	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit(opts, 100))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(a.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("arXiv API: %w", err)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	records := make([]types.RawRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		rec := types.APIRecord{
			ID:          arxivID,
			Title:       entry.Title,
			PublishDate: entry.Published,
			Type:        "preprint",
			Description: strings.TrimSpace(entry.Summary),
			DOI:         entry.DOI,
			URL:         "https://arxiv.org/abs/" + arxivID,
		}
		for _, au := range entry.Authors {
			rec.Authors = append(rec.Authors, au.Name)
		}
		for _, c := range entry.Categories {
			rec.Subjects = append(rec.Subjects, c.Term)
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildArxivQuery constructs the search_query parameter. Title and author
// searches use the ti: and au: prefixes; everything else searches all:.
func buildArxivQuery(q types.Query) string {
	var parts []string
	field := func(prefix, v string) {
		if terms := strings.Fields(v); len(terms) > 0 {
			parts = append(parts, prefix+":"+strings.Join(terms, " "+prefix+":"))
		}
	}

	switch q.EffectiveType() {
	case types.SearchTitle:
		field("ti", q.Text)
	case types.SearchAuthor:
		field("au", q.Text)
	case types.SearchSubject:
		field("cat", q.Text)
	default:
		field("all", q.Text)
	}
	field("ti", q.Fields.Title)
	field("au", q.Fields.Author)

	return strings.Join(parts, " AND ")
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
	DOI        string          `xml:"doi"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
