// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// openLibrarySearchBase is the Open Library search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openLibrarySearchBase = "https://openlibrary.org/search.json"

const openLibraryFields = "key,title,subtitle,author_name,isbn,first_publish_year,publish_date,publisher,subject,language,number_of_pages_median"

// OpenLibrary queries the Open Library search API.
type OpenLibrary struct {
	Client   *http.Client
	Endpoint string
}

// Search queries Open Library and returns API records.
func (o *OpenLibrary) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	params := buildOpenLibraryParams(query)
	if len(params) == 0 {
		return nil, errors.New("empty Open Library query")
	}
	params.Set("limit", strconv.Itoa(limit(opts, 100)))
	params.Set("fields", openLibraryFields)

	base := o.Endpoint
	if base == "" {
		base = openLibrarySearchBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(o.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("Open Library request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("Open Library: %w", err)
	}

	var olr openLibraryResponse
	if err := json.NewDecoder(resp.Body).Decode(&olr); err != nil {
		return nil, fmt.Errorf("parsing Open Library response: %w", err)
	}

	records := make([]types.RawRecord, 0, len(olr.Docs))
	for _, d := range olr.Docs {
		rec := types.APIRecord{
			ID:       d.Key,
			Title:    d.Title,
			Subtitle: d.Subtitle,
			Authors:  d.AuthorName,
			ISBNs:    d.ISBN,
			Year:     d.FirstPublishYear,
			Type:     "book",
			Subjects: d.Subject,
		}
		if len(d.PublishDate) > 0 {
			rec.PublishDate = d.PublishDate[0]
		}
		if len(d.Publisher) > 0 {
			rec.Publisher = d.Publisher[0]
		}
		if len(d.Language) > 0 {
			rec.Language = d.Language[0]
		}
		if d.Key != "" {
			rec.URL = "https://openlibrary.org" + d.Key
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildOpenLibraryParams maps the search type onto Open Library's fielded
// parameters.
func buildOpenLibraryParams(q types.Query) url.Values {
	params := url.Values{}
	if text := strings.TrimSpace(q.Text); text != "" {
		switch q.EffectiveType() {
		case types.SearchTitle:
			params.Set("title", text)
		case types.SearchAuthor:
			params.Set("author", text)
		case types.SearchISBN:
			params.Set("isbn", text)
		case types.SearchSubject:
			params.Set("subject", text)
		default:
			params.Set("q", text)
		}
	}
	if v := strings.TrimSpace(q.Fields.Title); v != "" {
		params.Set("title", v)
	}
	if v := strings.TrimSpace(q.Fields.Author); v != "" {
		params.Set("author", v)
	}
	if v := strings.TrimSpace(q.Fields.ISBN); v != "" {
		params.Set("isbn", v)
	}
	return params
}

// Open Library search JSON structures.
type openLibraryResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	ISBN             []string `json:"isbn"`
	FirstPublishYear int      `json:"first_publish_year"`
	PublishDate      []string `json:"publish_date"`
	Publisher        []string `json:"publisher"`
	Subject          []string `json:"subject"`
	Language         []string `json:"language"`
}
