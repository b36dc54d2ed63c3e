// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/internal/registry"
	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// robotsTTL is how long a fetched robots.txt is trusted.
const robotsTTL = time.Hour

// setDefaults registers every config key with viper so that environment
// variables such as CATALOG_AGGREGATOR_SEARCH_MAX_RESULTS are picked up by
// Unmarshal even when no config file sets the key.
func setDefaults(d types.AggregatorConfig) {
	viper.SetDefault("http.timeout", d.HTTP.Timeout)
	viper.SetDefault("http.user_agent", d.HTTP.UserAgent)
	viper.SetDefault("search.default_source_timeout", d.Search.DefaultSourceTimeout)
	viper.SetDefault("search.max_results", d.Search.MaxResults)
	viper.SetDefault("scoring.title", d.Scoring.Title)
	viper.SetDefault("scoring.author", d.Scoring.Author)
	viper.SetDefault("scoring.subject", d.Scoring.Subject)
	viper.SetDefault("scoring.description", d.Scoring.Description)
	viper.SetDefault("scoring.isbn", d.Scoring.ISBN)
	viper.SetDefault("merge.title_threshold", d.Merge.TitleThreshold)
	viper.SetDefault("merge.year_tolerance", d.Merge.YearTolerance)
	viper.SetDefault("merge.ambiguity_threshold", d.Merge.AmbiguityThreshold)
	viper.SetDefault("enrichment.enabled", d.Enrichment.Enabled)
	viper.SetDefault("enrichment.budget", d.Enrichment.Budget)
	viper.SetDefault("enrichment.provider_timeout", d.Enrichment.ProviderTimeout)
	viper.SetDefault("enrichment.min_spacing", d.Enrichment.MinSpacing)
	viper.SetDefault("enrichment.max_concurrency", d.Enrichment.MaxConcurrency)
	viper.SetDefault("enrichment.providers", d.Enrichment.Providers)
	viper.SetDefault("enrichment.email", d.Enrichment.Email)
	viper.SetDefault("enrichment.semantic_scholar_api_key", d.Enrichment.SemanticScholarAPIKey)
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
	viper.SetDefault("metrics.enabled", d.Metrics.Enabled)
	viper.SetDefault("sources_file", d.SourcesFile)
}

// loadConfig decodes viper's merged view into an AggregatorConfig and
// fills credentials from the secrets store when the config leaves them
// empty.
func loadConfig() (types.AggregatorConfig, error) {
	c := types.DefaultAggregatorConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	if c.Enrichment.Email == "" {
		c.Enrichment.Email = loadedSecrets.Get("openalex-email", loadedSecrets.Get("crossref-email", ""))
	}
	if c.Enrichment.SemanticScholarAPIKey == "" {
		c.Enrichment.SemanticScholarAPIKey = loadedSecrets.Get("semantic-scholar-api-key", "")
	}
	return c, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

// openRegistry builds a registry from the sources file at path, or from
// cfg.SourcesFile when path is empty. The caller closes it.
func openRegistry(client *http.Client, path string) (*registry.Registry, error) {
	if path == "" {
		path = cfg.SourcesFile
	}
	deps := sources.Deps{
		Client:  client,
		Robots:  httputil.NewRobotsChecker(client, cfg.HTTP.UserAgent, robotsTTL),
		Secrets: loadedSecrets,
		Email:   cfg.Enrichment.Email,
	}
	reg := registry.New()
	if err := registry.LoadFile(reg, path, deps, logger.Named("registry")); err != nil {
		_ = reg.Close()
		return nil, err
	}
	return reg, nil
}
