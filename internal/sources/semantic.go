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

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,publicationTypes,venue,fieldsOfStudy,url"

// SemanticScholar queries the Semantic Scholar paper search API.
type SemanticScholar struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
}

// Search queries Semantic Scholar and returns API records.
func (s *SemanticScholar) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	q := query.Terms()
	if q == "" {
		return nil, errors.New("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(limit(opts, 100))},
		"fields": {semanticFields},
	}
	if query.Fields.Year.Known() {
		params.Set("year", query.Fields.Year.String())
	}

	base := s.Endpoint
	if base == "" {
		base = semanticAPIBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(s.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("Semantic Scholar API: %w", err)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	records := make([]types.RawRecord, 0, len(sr.Data))
	for _, paper := range sr.Data {
		rec := types.APIRecord{
			ID:          paper.PaperID,
			Title:       paper.Title,
			Year:        paper.Year,
			PublishDate: paper.PublicationDate,
			Type:        semanticType(paper.PublicationTypes),
			Subjects:    paper.FieldsOfStudy,
			Description: paper.Abstract,
			DOI:         paper.ExternalIDs.DOI,
			Publisher:   paper.Venue,
			URL:         paper.URL,
		}
		for _, a := range paper.Authors {
			rec.Authors = append(rec.Authors, a.Name)
		}
		records = append(records, rec)
	}
	return records, nil
}

// semanticType maps Semantic Scholar publication types to labels the
// normalizer understands.
func semanticType(pubTypes []string) string {
	for _, t := range pubTypes {
		switch t {
		case "Book", "BookSection":
			return "book"
		case "JournalArticle", "Conference", "Review", "LettersAndComments", "Editorial", "CaseReport":
			return "article"
		case "Dataset":
			return "dataset"
		}
	}
	if len(pubTypes) == 0 {
		return "article"
	}
	return "other"
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string              `json:"paperId"`
	Title            string              `json:"title"`
	Abstract         string              `json:"abstract"`
	Year             int                 `json:"year"`
	PublicationDate  string              `json:"publicationDate"`
	PublicationTypes []string            `json:"publicationTypes"`
	Venue            string              `json:"venue"`
	FieldsOfStudy    []string            `json:"fieldsOfStudy"`
	URL              string              `json:"url"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
