// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements catalog adapters. Each adapter owns its
// transport and response parsing and returns raw records in its family's
// shape; normalization happens elsewhere.
package sources

import (
	"context"
	"net/http"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Adapter searches one remote catalog. Implementations must honor ctx: the
// coordinator abandons calls whose deadline has passed.
type Adapter interface {
	Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error)
}

// Options carries per-call settings shared by all adapters.
type Options struct {
	// MaxResults asks the catalog for at most this many records (0 uses the
	// adapter default).
	MaxResults int

	// UserAgent is sent with HTTP requests.
	UserAgent string
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error)

// Search calls f.
func (f AdapterFunc) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	return f(ctx, query, opts)
}

// Adapter kinds accepted in the sources file.
const (
	KindSRU             = "sru"
	KindOpenLibrary     = "openlibrary"
	KindOpenAlex        = "openalex"
	KindArxiv           = "arxiv"
	KindSemanticScholar = "semantic_scholar"
	KindJSON            = "json"
	KindElasticsearch   = "elasticsearch"
	KindSQL             = "sql"
	KindOPAC            = "opac"
)

const defaultMaxResults = 20

func limit(opts Options, ceiling int) int {
	n := opts.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}

func setUserAgent(req *http.Request, opts Options) {
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
