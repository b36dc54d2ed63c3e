// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex works API.
type OpenAlex struct {
	Client   *http.Client
	Endpoint string
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Search queries OpenAlex and returns API records.
func (o *OpenAlex) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	params, ok := buildOpenAlexParams(query)
	if !ok {
		return nil, errors.New("empty OpenAlex query")
	}
	params.Set("per_page", strconv.Itoa(limit(opts, 200)))
	params.Set("page", "1")
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	base := o.Endpoint
	if base == "" {
		base = openAlexSearchBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(o.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("OpenAlex API: %w", err)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	records := make([]types.RawRecord, 0, len(oar.Results))
	for _, work := range oar.Results {
		rec := types.APIRecord{
			ID:          work.ID,
			Title:       work.Title,
			Year:        work.PublicationYear,
			PublishDate: work.PublicationDate,
			Type:        work.Type,
			Description: reconstructAbstract(work.AbstractInvertedIndex),
			DOI:         work.DOI,
			Language:    work.Language,
			URL:         work.ID,
		}
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				rec.Authors = append(rec.Authors, authorship.Author.DisplayName)
			}
		}
		for _, topic := range work.Topics {
			rec.Subjects = append(rec.Subjects, topic.DisplayName)
		}
		if src := work.PrimaryLocation.Source; src != nil {
			rec.ISSN = src.ISSNL
			rec.Publisher = src.HostOrganizationName
		}
		if work.IDs.ISBN != "" {
			rec.ISBNs = []string{work.IDs.ISBN}
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildOpenAlexParams uses title.search for title queries and full-text
// search otherwise. Structured fields become filters.
func buildOpenAlexParams(q types.Query) (url.Values, bool) {
	params := url.Values{}
	var filters []string

	if text := strings.TrimSpace(q.Text); text != "" {
		switch q.EffectiveType() {
		case types.SearchTitle:
			filters = append(filters, "title.search:"+openAlexFilterValue(text))
		case types.SearchAuthor:
			filters = append(filters, "raw_author_name.search:"+openAlexFilterValue(text))
		default:
			params.Set("search", text)
		}
	}
	if v := strings.TrimSpace(q.Fields.Title); v != "" {
		filters = append(filters, "title.search:"+openAlexFilterValue(v))
	}
	if v := strings.TrimSpace(q.Fields.Author); v != "" {
		filters = append(filters, "raw_author_name.search:"+openAlexFilterValue(v))
	}
	if q.Fields.Year.Known() {
		filters = append(filters, "publication_year:"+q.Fields.Year.String())
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if v := strings.TrimSpace(q.Fields.ISBN); v != "" && params.Get("search") == "" {
		params.Set("search", v)
	}
	return params, params.Get("search") != "" || params.Get("filter") != ""
}

// openAlexFilterValue drops the characters OpenAlex uses as filter syntax.
func openAlexFilterValue(s string) string {
	return strings.NewReplacer(",", " ", ":", " ", "|", " ").Replace(s)
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	Type                  string               `json:"type"`
	Language              string               `json:"language"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Topics                []openAlexTopic      `json:"topics"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	IDs                   openAlexIDs          `json:"ids"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexTopic struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName          string `json:"display_name"`
	ISSNL                string `json:"issn_l"`
	HostOrganizationName string `json:"host_organization_name"`
}

type openAlexIDs struct {
	ISBN string `json:"isbn"`
}
