// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// ElasticCatalog searches a union catalog indexed in Elasticsearch. Hit
// sources are returned as catalog documents.
type ElasticCatalog struct {
	Client *elasticsearch.Client
	Index  string
}

// Fields searched per search type. Boosts favor titles.
var elasticFields = map[types.SearchType][]string{
	types.SearchTitle:   {"title^3", "subtitle"},
	types.SearchAuthor:  {"authors^2", "author"},
	types.SearchISBN:    {"isbn"},
	types.SearchSubject: {"subjects^2", "subject"},
	types.SearchKeyword: {"title^3", "authors^2", "subjects", "description"},
	types.SearchAll:     {"title^3", "subtitle", "authors^2", "subjects", "description", "publisher", "isbn"},
}

// Search runs one search request against the index.
func (e *ElasticCatalog) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	if e.Client == nil {
		return nil, errors.New("elasticsearch client not configured")
	}
	if e.Index == "" {
		return nil, errors.New("elasticsearch index not configured")
	}

	body, err := buildElasticQuery(query)
	if err != nil {
		return nil, err
	}
	size := limit(opts, 500)

	req := esapi.SearchRequest{
		Index: []string{e.Index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.Status())
	}

	var sr elasticResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing elasticsearch response: %w", err)
	}

	records := make([]types.RawRecord, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		doc := types.CatalogDocument(h.Source)
		if doc == nil {
			doc = types.CatalogDocument{}
		}
		if _, ok := doc["id"]; !ok && h.ID != "" {
			doc["id"] = h.ID
		}
		records = append(records, doc)
	}
	return records, nil
}

// buildElasticQuery builds a bool query: the text as a multi_match over
// the search type's fields, plus a match clause per structured field.
func buildElasticQuery(q types.Query) ([]byte, error) {
	var must []any
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": elasticFields[q.EffectiveType()],
				"type":   "best_fields",
			},
		})
	}
	for _, f := range [][2]string{{"title", q.Fields.Title}, {"authors", q.Fields.Author}, {"isbn", q.Fields.ISBN}} {
		if v := strings.TrimSpace(f[1]); v != "" {
			must = append(must, map[string]any{"match": map[string]any{f[0]: v}})
		}
	}
	if len(must) == 0 {
		return nil, errors.New("empty elasticsearch query")
	}

	boolQuery := map[string]any{"must": must}
	if q.Fields.Year.Known() {
		y := int(q.Fields.Year)
		boolQuery["should"] = []any{
			map[string]any{"range": map[string]any{"year": map[string]any{"gte": y - 1, "lte": y + 1}}},
		}
	}
	return json.Marshal(map[string]any{"query": map[string]any{"bool": boolQuery}})
}

type elasticResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
