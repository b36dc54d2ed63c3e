// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters and enrichment
// providers.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. Per-source deadlines are applied
	// separately by the coordinator.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "catalog-aggregator/0.1 (mailto:ops@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the primary fan-out.
type SearchConfig struct {
	// DefaultSourceTimeout applies to sources without their own timeout (default 10s).
	DefaultSourceTimeout time.Duration `json:"default_source_timeout" yaml:"default_source_timeout" mapstructure:"default_source_timeout"`

	// MaxResults asks each source for at most this many records and caps
	// the aggregated list (0 disables the cap).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ScoringWeights are the points awarded per matched field. They are
// tunable; the defaults are the historical constants.
type ScoringWeights struct {
	Title       float64 `json:"title" yaml:"title" mapstructure:"title"`
	Author      float64 `json:"author" yaml:"author" mapstructure:"author"`
	Subject     float64 `json:"subject" yaml:"subject" mapstructure:"subject"`
	Description float64 `json:"description" yaml:"description" mapstructure:"description"`
	ISBN        float64 `json:"isbn" yaml:"isbn" mapstructure:"isbn"`
}

// DefaultScoringWeights returns 10/8/6/4/15.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Title: 10, Author: 8, Subject: 6, Description: 4, ISBN: 15}
}

// MergeConfig holds the deduplication thresholds.
type MergeConfig struct {
	// TitleThreshold is the minimum normalized edit-distance ratio for two
	// titles to count as the same work (default 0.85).
	TitleThreshold float64 `json:"title_threshold" yaml:"title_threshold" mapstructure:"title_threshold"`

	// YearTolerance is the largest year difference that still merges (default 1).
	YearTolerance int `json:"year_tolerance" yaml:"year_tolerance" mapstructure:"year_tolerance"`

	// AmbiguityThreshold is the title ratio above which an unmerged pair is
	// logged as a merge ambiguity (default 0.70).
	AmbiguityThreshold float64 `json:"ambiguity_threshold" yaml:"ambiguity_threshold" mapstructure:"ambiguity_threshold"`
}

// DefaultMergeConfig returns the default thresholds.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{TitleThreshold: 0.85, YearTolerance: 1, AmbiguityThreshold: 0.70}
}

// EnrichmentConfig holds settings for the citation/PDF overlay.
type EnrichmentConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Budget bounds the whole enrichment pass (default 8s).
	Budget time.Duration `json:"budget" yaml:"budget" mapstructure:"budget"`

	// ProviderTimeout bounds a single provider lookup (default 5s).
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout" mapstructure:"provider_timeout"`

	// MinSpacing is the minimum interval between two requests to the same
	// provider, across all records (default 100ms).
	MinSpacing time.Duration `json:"min_spacing" yaml:"min_spacing" mapstructure:"min_spacing"`

	// MaxConcurrency caps in-flight lookups across all providers (default 8).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// Providers lists the enabled providers by name; empty enables all.
	Providers []string `json:"providers,omitempty" yaml:"providers,omitempty" mapstructure:"providers"`

	// Email is sent to OpenAlex and Crossref for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// LoggingConfig selects the zap logger level and encoding.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls Prometheus collection.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// AggregatorConfig groups all settings for one aggregator process.
type AggregatorConfig struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Scoring    ScoringWeights   `json:"scoring" yaml:"scoring" mapstructure:"scoring"`
	Merge      MergeConfig      `json:"merge" yaml:"merge" mapstructure:"merge"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// SourcesFile is the YAML file listing the catalogs to register.
	SourcesFile string `json:"sources_file" yaml:"sources_file" mapstructure:"sources_file"`
}

// DefaultAggregatorConfig returns a configuration with every default filled in.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "catalog-aggregator/0.1",
		},
		Search: SearchConfig{
			DefaultSourceTimeout: 10 * time.Second,
			MaxResults:           50,
		},
		Scoring: DefaultScoringWeights(),
		Merge:   DefaultMergeConfig(),
		Enrichment: EnrichmentConfig{
			Enabled:         true,
			Budget:          8 * time.Second,
			ProviderTimeout: 5 * time.Second,
			MinSpacing:      100 * time.Millisecond,
			MaxConcurrency:  8,
		},
		Logging:     LoggingConfig{Level: "info", Format: "console"},
		SourcesFile: "sources.yaml",
	}
}

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	ID          string        `json:"id" yaml:"id"`
	DisplayName string        `json:"display_name" yaml:"display_name"`
	Country     string        `json:"country,omitempty" yaml:"country,omitempty"`
	City        string        `json:"city,omitempty" yaml:"city,omitempty"`
	Region      string        `json:"region,omitempty" yaml:"region,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Priority    int           `json:"priority" yaml:"priority"`

	// Kind selects the adapter implementation (sru, openlibrary, openalex,
	// arxiv, semantic_scholar, json, elasticsearch, sql, opac).
	Kind string `json:"kind" yaml:"kind"`

	// Family overrides the normalization family implied by Kind.
	Family Family `json:"family,omitempty" yaml:"family,omitempty"`

	// Endpoint is the base URL, Elasticsearch address or database DSN.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Options carries kind-specific settings (index, table, driver, ...).
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsEnabled reports whether the source should be registered.
func (c SourceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Descriptor builds the SourceDescriptor for this entry.
func (c SourceConfig) Descriptor(family Family) SourceDescriptor {
	if c.Family != "" {
		family = c.Family
	}
	name := c.DisplayName
	if name == "" {
		name = c.ID
	}
	return SourceDescriptor{
		ID:          c.ID,
		DisplayName: name,
		Country:     c.Country,
		City:        c.City,
		Region:      c.Region,
		Timeout:     c.Timeout,
		Priority:    c.Priority,
		Family:      family,
	}
}
