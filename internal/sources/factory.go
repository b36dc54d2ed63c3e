// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/internal/secrets"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Deps holds the shared resources adapters are built from.
type Deps struct {
	Client  *http.Client
	Robots  *httputil.RobotsChecker
	Secrets secrets.Store

	// Email is sent to APIs that offer a polite pool.
	Email string
}

// DefaultFamily returns the normalization family produced by an adapter kind.
func DefaultFamily(kind string) (types.Family, bool) {
	switch kind {
	case KindSRU:
		return types.FamilyMARC21, true
	case KindOpenLibrary, KindOpenAlex, KindArxiv, KindSemanticScholar:
		return types.FamilyBibliographicAPI, true
	case KindJSON, KindElasticsearch, KindSQL:
		return types.FamilyJSONCatalog, true
	case KindOPAC:
		return types.FamilyHTMLScrape, true
	default:
		return "", false
	}
}

// New builds the adapter for one sources-file entry and returns it with
// the entry's descriptor.
func New(cfg types.SourceConfig, deps Deps) (Adapter, types.SourceDescriptor, error) {
	if cfg.ID == "" {
		return nil, types.SourceDescriptor{}, fmt.Errorf("source has no id")
	}
	family, ok := DefaultFamily(cfg.Kind)
	if !ok {
		return nil, types.SourceDescriptor{}, fmt.Errorf("source %s: unknown kind %q", cfg.ID, cfg.Kind)
	}
	desc := cfg.Descriptor(family)
	opt := func(key string) string { return cfg.Options[key] }
	secret := func() string {
		key := opt("api_key_secret")
		if key == "" {
			key = cfg.ID + "-api-key"
		}
		return deps.Secrets.Get(key, opt("api_key"))
	}

	var a Adapter
	switch cfg.Kind {
	case KindSRU:
		if cfg.Endpoint == "" {
			return nil, desc, fmt.Errorf("source %s: sru needs an endpoint", cfg.ID)
		}
		s := &SRU{
			Client:       deps.Client,
			Endpoint:     cfg.Endpoint,
			Version:      opt("version"),
			RecordSchema: opt("record_schema"),
		}
		for _, st := range []types.SearchType{types.SearchTitle, types.SearchAuthor, types.SearchISBN, types.SearchSubject, types.SearchKeyword, types.SearchAll} {
			if idx := opt("index_" + string(st)); idx != "" {
				if s.Indexes == nil {
					s.Indexes = make(map[types.SearchType]string)
				}
				s.Indexes[st] = idx
			}
		}
		a = s
	case KindOpenLibrary:
		a = &OpenLibrary{Client: deps.Client, Endpoint: cfg.Endpoint}
	case KindOpenAlex:
		a = &OpenAlex{Client: deps.Client, Endpoint: cfg.Endpoint, Email: firstNonEmpty(opt("email"), deps.Email)}
	case KindArxiv:
		a = &Arxiv{Client: deps.Client, Endpoint: cfg.Endpoint}
	case KindSemanticScholar:
		a = &SemanticScholar{Client: deps.Client, Endpoint: cfg.Endpoint, APIKey: secret()}
	case KindJSON:
		a = &JSONCatalog{
			Client:      deps.Client,
			Endpoint:    cfg.Endpoint,
			QueryParam:  opt("query_param"),
			TypeParam:   opt("type_param"),
			LimitParam:  opt("limit_param"),
			ResultsPath: opt("results_path"),
		}
	case KindElasticsearch:
		esCfg := elasticsearch.Config{
			Addresses: strings.Split(cfg.Endpoint, ","),
			APIKey:    secret(),
		}
		if deps.Client != nil {
			esCfg.Transport = deps.Client.Transport
		}
		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			return nil, desc, fmt.Errorf("source %s: creating elasticsearch client: %w", cfg.ID, err)
		}
		a = &ElasticCatalog{Client: client, Index: opt("index")}
	case KindSQL:
		dsn := cfg.Endpoint
		if dsn == "" {
			dsn = secret()
		}
		c, err := OpenSQLCatalog(firstNonEmpty(opt("driver"), DriverSQLite), dsn, opt("table"))
		if err != nil {
			return nil, desc, fmt.Errorf("source %s: %w", cfg.ID, err)
		}
		if cols := opt("list_columns"); cols != "" {
			c.SetListColumns(strings.Split(cols, ","))
		}
		a = c
	case KindOPAC:
		a = &OPAC{
			Client:     deps.Client,
			Endpoint:   cfg.Endpoint,
			QueryParam: opt("query_param"),
			ItemClass:  opt("item_class"),
			Robots:     deps.Robots,
		}
	}
	return a, desc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
