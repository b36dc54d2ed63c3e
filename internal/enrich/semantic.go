// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"net/http"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// semanticPaperBase is the Semantic Scholar paper lookup endpoint.
var semanticPaperBase = "https://api.semanticscholar.org/graph/v1/paper/"

// SemanticScholar reports citationCount and openAccessPdf by DOI.
type SemanticScholar struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name implements Provider.
func (*SemanticScholar) Name() string { return NameSemanticScholar }

// Key implements Keyer; the lookup key is the record DOI.
func (*SemanticScholar) Key(rec types.BibliographicRecord) (string, error) { return doiKey(rec) }

type semanticPaper struct {
	CitationCount *int `json:"citationCount"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// Lookup implements Provider.
func (s *SemanticScholar) Lookup(ctx context.Context, rec types.BibliographicRecord) (Metadata, error) {
	doi, err := doiKey(rec)
	if err != nil {
		return Metadata{}, err
	}
	apiURL := semanticPaperBase + "DOI:" + doi + "?fields=citationCount,openAccessPdf"

	h := userAgentHeader(s.UserAgent)
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}
	var p semanticPaper
	if err := getJSON(ctx, s.Client, apiURL, h, &p); err != nil {
		return Metadata{}, err
	}

	meta := Metadata{CitationCount: p.CitationCount}
	if p.OpenAccessPDF != nil && p.OpenAccessPDF.URL != "" {
		meta.PDFLinks = []types.PDFLink{{URL: p.OpenAccessPDF.URL, Provider: NameSemanticScholar, OpenAccess: true}}
	}
	return meta, nil
}
