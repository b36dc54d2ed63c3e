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

// JSONCatalog queries a catalog that answers a GET with a JSON list of
// loosely keyed documents. Parameter names and the location of the result
// list are configurable because every such catalog differs.
type JSONCatalog struct {
	Client   *http.Client
	Endpoint string

	// QueryParam carries the query text (default "q").
	QueryParam string

	// TypeParam carries the search type; empty omits it (default "type").
	TypeParam string

	// LimitParam carries MaxResults (default "limit").
	LimitParam string

	// ResultsPath is a dotted path to the result array. Empty tries the
	// common keys and a top-level array.
	ResultsPath string
}

var jsonResultKeys = []string{"results", "docs", "records", "items", "data", "hits"}

// Search fetches and decodes the result list.
func (j *JSONCatalog) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	text := query.Terms()
	if text == "" {
		return nil, errors.New("empty catalog query")
	}
	if j.Endpoint == "" {
		return nil, errors.New("catalog endpoint not configured")
	}

	params := url.Values{}
	params.Set(orDefault(j.QueryParam, "q"), text)
	if tp := orDefault(j.TypeParam, "type"); tp != "-" {
		params.Set(tp, string(query.EffectiveType()))
	}
	params.Set(orDefault(j.LimitParam, "limit"), strconv.Itoa(limit(opts, 0)))

	sep := "?"
	if strings.Contains(j.Endpoint, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.Endpoint+sep+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(j.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing catalog response: %w", err)
	}

	list, err := j.resultList(body)
	if err != nil {
		return nil, err
	}
	records := make([]types.RawRecord, 0, len(list))
	for _, item := range list {
		// Non-object entries are passed through as empty documents so the
		// normalizer reports them as malformed records.
		doc, _ := item.(map[string]any)
		records = append(records, types.CatalogDocument(doc))
	}
	return records, nil
}

func (j *JSONCatalog) resultList(body any) ([]any, error) {
	if j.ResultsPath != "" {
		v := body
		for _, key := range strings.Split(j.ResultsPath, ".") {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("results path %q not found", j.ResultsPath)
			}
			v = m[key]
		}
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("results path %q is not an array", j.ResultsPath)
		}
		return list, nil
	}

	switch t := body.(type) {
	case []any:
		return t, nil
	case map[string]any:
		for _, k := range jsonResultKeys {
			if list, ok := t[k].([]any); ok {
				return list, nil
			}
		}
	}
	return nil, errors.New("catalog response has no result list")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
