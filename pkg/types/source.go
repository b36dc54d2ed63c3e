// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Family selects the normalization strategy for a source's raw records.
type Family string

const (
	FamilyMARC21           Family = "marc21"
	FamilyJSONCatalog      Family = "json_catalog"
	FamilyBibliographicAPI Family = "bibliographic_api"
	FamilyHTMLScrape       Family = "html_scrape"
)

// SourceDescriptor describes a registered catalog.
type SourceDescriptor struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Country     string `json:"country,omitempty" yaml:"country,omitempty"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	Region      string `json:"region,omitempty" yaml:"region,omitempty"`

	// Timeout overrides the aggregator's default per-source deadline.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Priority orders dispatch and breaks merge ties; lower values come first.
	Priority int `json:"priority" yaml:"priority"`

	Family Family `json:"family" yaml:"family"`
}

// RawRecord is one record in the shape a source returned it. Each family
// has its own concrete type.
type RawRecord interface {
	Family() Family
}

// MARCSubfield is one coded subfield of a MARC data field.
type MARCSubfield struct {
	Code  string `json:"code" xml:"code,attr"`
	Value string `json:"value" xml:",chardata"`
}

// MARCField is a control field (Value set) or a data field (Subfields set).
type MARCField struct {
	Tag       string         `json:"tag"`
	Ind1      string         `json:"ind1,omitempty"`
	Ind2      string         `json:"ind2,omitempty"`
	Value     string         `json:"value,omitempty"`
	Subfields []MARCSubfield `json:"subfields,omitempty"`
}

// MARCRecord is a MARC21 bibliographic record decoded from MARCXML or an
// equivalent field list.
type MARCRecord struct {
	Leader string      `json:"leader"`
	Fields []MARCField `json:"fields"`
}

// Family implements RawRecord.
func (MARCRecord) Family() Family { return FamilyMARC21 }

// CatalogDocument is a loosely keyed JSON document from a catalog endpoint,
// a search index or a database row.
type CatalogDocument map[string]any

// Family implements RawRecord.
func (CatalogDocument) Family() Family { return FamilyJSONCatalog }

// APIRecord is a well-typed record from a bibliographic API.
type APIRecord struct {
	ID          string
	Title       string
	Subtitle    string
	Authors     []string
	ISBNs       []string
	ISSN        string
	Year        int
	PublishDate string
	Publisher   string
	Type        string
	Subjects    []string
	Description string
	DOI         string
	Language    string
	URL         string
}

// Family implements RawRecord.
func (APIRecord) Family() Family { return FamilyBibliographicAPI }

// ScrapedRecord is free text scraped from an OPAC results page.
type ScrapedRecord struct {
	Text string
	Link string
}

// Family implements RawRecord.
func (ScrapedRecord) Family() Family { return FamilyHTMLScrape }

// Status is the outcome of one source call.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// ErrorKind classifies failures reported by the pipeline.
type ErrorKind string

const (
	ErrorSourceTimeout     ErrorKind = "source_timeout"
	ErrorSource            ErrorKind = "source_error"
	ErrorNormalization     ErrorKind = "normalization_error"
	ErrorMergeAmbiguity    ErrorKind = "merge_ambiguity"
	ErrorEnrichmentFailure ErrorKind = "enrichment_failure"
)

// RawSourceResult is the transient outcome of one adapter call.
type RawSourceResult struct {
	SourceID    string
	Records     []RawRecord
	Status      Status
	ErrorKind   ErrorKind
	ErrorDetail string
	Elapsed     time.Duration
}
