// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// crossrefWorksBase is the Crossref works endpoint.
var crossrefWorksBase = "https://api.crossref.org/works/"

// Crossref reports is-referenced-by-count and publisher full-text links
// of PDF type. Those links are not known to be open access.
type Crossref struct {
	Client    *http.Client
	Email     string
	UserAgent string
}

// Name implements Provider.
func (*Crossref) Name() string { return NameCrossref }

// Key implements Keyer; the lookup key is the record DOI.
func (*Crossref) Key(rec types.BibliographicRecord) (string, error) { return doiKey(rec) }

type crossrefResponse struct {
	Message struct {
		ReferencedBy *int `json:"is-referenced-by-count"`
		Link         []struct {
			URL         string `json:"URL"`
			ContentType string `json:"content-type"`
		} `json:"link"`
	} `json:"message"`
}

// Lookup implements Provider.
func (c *Crossref) Lookup(ctx context.Context, rec types.BibliographicRecord) (Metadata, error) {
	doi, err := doiKey(rec)
	if err != nil {
		return Metadata{}, err
	}
	apiURL := crossrefWorksBase + doi
	if c.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(c.Email)
	}

	var cr crossrefResponse
	if err := getJSON(ctx, c.Client, apiURL, userAgentHeader(c.UserAgent), &cr); err != nil {
		return Metadata{}, err
	}

	meta := Metadata{CitationCount: cr.Message.ReferencedBy}
	for _, l := range cr.Message.Link {
		if strings.EqualFold(l.ContentType, "application/pdf") && l.URL != "" {
			meta.PDFLinks = append(meta.PDFLinks, types.PDFLink{URL: l.URL, Provider: NameCrossref})
		}
	}
	return meta, nil
}
