// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Provider names accepted in configuration.
const (
	NameOpenAlex        = "openalex"
	NameSemanticScholar = "semantic_scholar"
	NameCrossref        = "crossref"
)

// ProviderNames lists every built-in provider.
var ProviderNames = []string{NameOpenAlex, NameSemanticScholar, NameCrossref}

// NewProviders builds the providers named in cfg.Providers, or all of
// them when the list is empty.
func NewProviders(client *http.Client, cfg types.EnrichmentConfig, userAgent string) ([]Provider, error) {
	names := cfg.Providers
	if len(names) == 0 {
		names = ProviderNames
	}
	var out []Provider
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case NameOpenAlex:
			out = append(out, &OpenAlex{Client: client, Email: cfg.Email, UserAgent: userAgent})
		case NameSemanticScholar:
			out = append(out, &SemanticScholar{Client: client, APIKey: cfg.SemanticScholarAPIKey, UserAgent: userAgent})
		case NameCrossref:
			out = append(out, &Crossref{Client: client, Email: cfg.Email, UserAgent: userAgent})
		default:
			return nil, fmt.Errorf("unknown enrichment provider %q", name)
		}
	}
	return out, nil
}

// doiKey returns the bare DOI of a record or ErrNoLookupKey.
func doiKey(rec types.BibliographicRecord) (string, error) {
	doi := strings.TrimSpace(rec.DOI)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			doi = doi[len(prefix):]
		}
	}
	if !strings.HasPrefix(doi, "10.") {
		return "", ErrNoLookupKey
	}
	return doi, nil
}

// getJSON fetches url into out. A 404 yields ErrNotFound.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	// One retry at most: the overlay runs under a tight budget.
	resp, err := httputil.DoWithRetry(ctx, client, req, 1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func userAgentHeader(ua string) http.Header {
	h := http.Header{}
	if ua != "" {
		h.Set("User-Agent", ua)
	}
	return h
}
