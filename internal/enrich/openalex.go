// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// openAlexWorkBase is the OpenAlex single-work endpoint. Declared as a var
// so tests can substitute an httptest server.
var openAlexWorkBase = "https://api.openalex.org/works/"

// OpenAlex reports cited_by_count and the best open-access PDF by DOI.
type OpenAlex struct {
	Client    *http.Client
	Email     string
	UserAgent string
}

// Name implements Provider.
func (*OpenAlex) Name() string { return NameOpenAlex }

// Key implements Keyer; the lookup key is the record DOI.
func (*OpenAlex) Key(rec types.BibliographicRecord) (string, error) { return doiKey(rec) }

type openAlexWork struct {
	CitedByCount   *int               `json:"cited_by_count"`
	BestOALocation *openAlexLocation  `json:"best_oa_location"`
	Locations      []openAlexLocation `json:"locations"`
}

type openAlexLocation struct {
	PDFURL string `json:"pdf_url"`
	IsOA   bool   `json:"is_oa"`
}

// Lookup implements Provider.
func (o *OpenAlex) Lookup(ctx context.Context, rec types.BibliographicRecord) (Metadata, error) {
	doi, err := doiKey(rec)
	if err != nil {
		return Metadata{}, err
	}
	apiURL := openAlexWorkBase + "https://doi.org/" + doi
	if o.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(o.Email)
	}

	var w openAlexWork
	if err := getJSON(ctx, o.Client, apiURL, userAgentHeader(o.UserAgent), &w); err != nil {
		return Metadata{}, err
	}

	meta := Metadata{CitationCount: w.CitedByCount}
	seen := map[string]bool{}
	add := func(l *openAlexLocation) {
		if l == nil || l.PDFURL == "" || seen[l.PDFURL] {
			return
		}
		seen[l.PDFURL] = true
		meta.PDFLinks = append(meta.PDFLinks, types.PDFLink{URL: l.PDFURL, Provider: NameOpenAlex, OpenAccess: l.IsOA})
	}
	add(w.BestOALocation)
	for i := range w.Locations {
		add(&w.Locations[i])
	}
	return meta, nil
}
