// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Year is a publication year. Any value that is not a positive year is
// treated as unknown and serializes as the string "unknown"; a missing
// year is never coerced to zero or to the current year.
type Year int

// YearUnknown is the explicit sentinel for a missing year.
const YearUnknown Year = -1

const yearUnknownText = "unknown"

// Known reports whether the year carries a real value.
func (y Year) Known() bool { return y > 0 }

func (y Year) String() string {
	if !y.Known() {
		return yearUnknownText
	}
	return strconv.Itoa(int(y))
}

// MarshalJSON writes known years as numbers and unknown years as "unknown".
func (y Year) MarshalJSON() ([]byte, error) {
	if !y.Known() {
		return json.Marshal(yearUnknownText)
	}
	return json.Marshal(int(y))
}

// UnmarshalJSON accepts a number, a numeric string or "unknown".
func (y *Year) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*y = yearOrUnknown(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("year must be a number or string: %w", err)
	}
	return y.parse(s)
}

// MarshalYAML mirrors MarshalJSON.
func (y Year) MarshalYAML() (any, error) {
	if !y.Known() {
		return yearUnknownText, nil
	}
	return int(y), nil
}

// UnmarshalYAML mirrors UnmarshalJSON.
func (y *Year) UnmarshalYAML(node *yaml.Node) error {
	return y.parse(node.Value)
}

func (y *Year) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, yearUnknownText) {
		*y = YearUnknown
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid year %q", s)
	}
	*y = yearOrUnknown(n)
	return nil
}

func yearOrUnknown(n int) Year {
	if n <= 0 {
		return YearUnknown
	}
	return Year(n)
}

// Format classifies the kind of work a record describes.
type Format string

const (
	FormatBook    Format = "book"
	FormatJournal Format = "journal"
	FormatThesis  Format = "thesis"
	FormatArticle Format = "article"
	FormatDigital Format = "digital"
	FormatOther   Format = "other"
)

// Confidence describes how reliably a record's fields were extracted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences so that higher is better.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// LibraryInfo locates a physical holding.
type LibraryInfo struct {
	Institution string `json:"institution" yaml:"institution"`
	Country     string `json:"country" yaml:"country"`
	City        string `json:"city" yaml:"city"`
	CallNumber  string `json:"callNumber" yaml:"call_number"`
}

// CitationInfo is attached by the enrichment overlay.
type CitationInfo struct {
	// Count is the highest citation count reported by any provider.
	Count int `json:"count" yaml:"count"`

	// Counts holds the count reported by each provider.
	Counts map[string]int `json:"counts" yaml:"counts"`
}

// PDFLink is a candidate full-text location.
type PDFLink struct {
	URL        string `json:"url" yaml:"url"`
	Provider   string `json:"provider" yaml:"provider"`
	OpenAccess bool   `json:"openAccess" yaml:"open_access"`
}

// PDFAccess is attached by the enrichment overlay.
type PDFAccess struct {
	Links []PDFLink `json:"links" yaml:"links"`
}

// BibliographicRecord is the canonical, normalized form of one record
// returned by one source.
type BibliographicRecord struct {
	// ID is synthesized during normalization and is stable within a single
	// aggregation call only.
	ID string `json:"id" yaml:"id"`

	// SourceRecordID is the identifier the source itself uses, if any.
	SourceRecordID string `json:"sourceRecordId,omitempty" yaml:"source_record_id,omitempty"`

	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`

	// ISBN is the ISBN-13 form when the source value validated, the cleaned
	// source value otherwise, and "" when absent. It is always serialized.
	ISBN string `json:"isbn" yaml:"isbn"`

	ISSN        string   `json:"issn,omitempty" yaml:"issn,omitempty"`
	Year        Year     `json:"year" yaml:"year"`
	Publisher   string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Format      Format   `json:"format" yaml:"format"`
	Subjects    []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DOI         string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Language    string   `json:"language,omitempty" yaml:"language,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`

	SourceID      string     `json:"sourceId" yaml:"source_id"`
	RawConfidence Confidence `json:"rawConfidence" yaml:"raw_confidence"`

	LibraryInfo  *LibraryInfo  `json:"libraryInfo,omitempty" yaml:"library_info,omitempty"`
	CitationInfo *CitationInfo `json:"citationInfo,omitempty" yaml:"citation_info,omitempty"`
	PDFAccess    *PDFAccess    `json:"pdfAccess,omitempty" yaml:"pdf_access,omitempty"`
}

// SourceIdentifier preserves the identifiers of one record that was folded
// into a MergedRecord.
type SourceIdentifier struct {
	SourceID       string `json:"sourceId" yaml:"source_id"`
	RecordID       string `json:"recordId" yaml:"record_id"`
	SourceRecordID string `json:"sourceRecordId,omitempty" yaml:"source_record_id,omitempty"`
	ISBN           string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	CallNumber     string `json:"callNumber,omitempty" yaml:"call_number,omitempty"`
	Institution    string `json:"institution,omitempty" yaml:"institution,omitempty"`
}

// MergedRecord is one work as seen by one or more sources.
type MergedRecord struct {
	BibliographicRecord `yaml:",inline"`

	// ContributingSourceIDs is the sorted set of sources that returned
	// a record folded into this one.
	ContributingSourceIDs []string `json:"contributingSourceIds" yaml:"contributing_source_ids"`

	// MergeScore is the highest relevance score among the folded records.
	MergeScore float64 `json:"mergeScore" yaml:"merge_score"`

	// Identifiers lists every folded record, including the canonical one.
	Identifiers []SourceIdentifier `json:"identifiers" yaml:"identifiers"`

	// AlternateISBNs holds ISBNs of folded records that differ from ISBN.
	AlternateISBNs []string `json:"alternateIsbns,omitempty" yaml:"alternate_isbns,omitempty"`
}
