// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps each source's raw record shape into the canonical
// BibliographicRecord. There is one strategy per source family (MARC21,
// JSON catalog, bibliographic API, scraped HTML); the strategy is chosen by
// the family registered for the source id.
//
// Normalization is pure: it performs no I/O, and normalizing the same raw
// record twice yields identical records.
package normalize

import (
	"fmt"
	"strconv"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Error reports one raw record that could not be normalized. The record is
// skipped; the rest of the source's records are kept.
type Error struct {
	SourceID string
	Index    int
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: record %d: %s", e.SourceID, e.Index, e.Reason)
}

// Kind returns types.ErrorNormalization.
func (e *Error) Kind() types.ErrorKind { return types.ErrorNormalization }

// strategy converts one raw record of a single family.
type strategy interface {
	normalize(raw types.RawRecord, src types.SourceDescriptor) (types.BibliographicRecord, error)
}

var strategies = map[types.Family]strategy{
	types.FamilyMARC21:           marcStrategy{},
	types.FamilyJSONCatalog:      newCatalogStrategy(),
	types.FamilyBibliographicAPI: apiStrategy{},
	types.FamilyHTMLScrape:       scrapeStrategy{},
}

// Normalizer holds the descriptors of the sources whose output it maps.
// It is safe for concurrent use.
type Normalizer struct {
	sources map[string]types.SourceDescriptor
}

// New creates a Normalizer for the given sources.
func New(descriptors []types.SourceDescriptor) *Normalizer {
	m := make(map[string]types.SourceDescriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.ID] = d
	}
	return &Normalizer{sources: m}
}

// Normalize maps the records of one successful source result. Results that
// did not complete with StatusOK yield nothing. Malformed records are
// skipped and reported as *Error values.
//
// Record ids are "<sourceID>:<index>" where index is the position in the
// raw record list, so ids are stable within one aggregation call.
func (n *Normalizer) Normalize(raw types.RawSourceResult, sourceID string) ([]types.BibliographicRecord, []*Error) {
	if raw.Status != types.StatusOK && raw.Status != "" {
		return nil, nil
	}

	src, known := n.sources[sourceID]
	if !known {
		src = types.SourceDescriptor{ID: sourceID, DisplayName: sourceID}
	}

	out := make([]types.BibliographicRecord, 0, len(raw.Records))
	var errs []*Error
	for i, r := range raw.Records {
		rec, err := n.one(r, src)
		if err != nil {
			errs = append(errs, &Error{SourceID: sourceID, Index: i, Reason: err.Error()})
			continue
		}
		rec.ID = sourceID + ":" + strconv.Itoa(i)
		rec.SourceID = sourceID
		out = append(out, rec)
	}
	return out, errs
}

func (n *Normalizer) one(r types.RawRecord, src types.SourceDescriptor) (types.BibliographicRecord, error) {
	if r == nil {
		return types.BibliographicRecord{}, fmt.Errorf("nil record")
	}
	family := src.Family
	if family == "" {
		family = r.Family()
	}
	if r.Family() != family {
		return types.BibliographicRecord{}, fmt.Errorf("record family %s does not match source family %s", r.Family(), family)
	}
	s, ok := strategies[family]
	if !ok {
		return types.BibliographicRecord{}, fmt.Errorf("no strategy for family %q", family)
	}
	rec, err := s.normalize(r, src)
	if err != nil {
		return types.BibliographicRecord{}, err
	}
	finish(&rec)
	return rec, nil
}

// finish enforces the field-presence policy shared by every strategy.
func finish(rec *types.BibliographicRecord) {
	if rec.Authors == nil {
		rec.Authors = []string{}
	}
	if !rec.Year.Known() {
		rec.Year = types.YearUnknown
	}
	if rec.Format == "" {
		rec.Format = types.FormatOther
	}
}

// libraryInfo builds holding information from the source descriptor. It
// returns nil when there is nothing to report.
func libraryInfo(src types.SourceDescriptor, institution, callNumber string) *types.LibraryInfo {
	if institution == "" {
		institution = src.DisplayName
	}
	if institution == "" && callNumber == "" {
		return nil
	}
	return &types.LibraryInfo{
		Institution: institution,
		Country:     src.Country,
		City:        src.City,
		CallNumber:  callNumber,
	}
}

// FormatFromType maps a source's free-form type label to a Format.
func FormatFromType(t string) types.Format {
	switch FoldKey(t) {
	case "book", "books", "monograph", "book chapter", "book section", "edited book", "reference book", "ebook":
		return types.FormatBook
	case "journal", "periodical", "serial", "magazine":
		return types.FormatJournal
	case "thesis", "dissertation", "tez", "doctoral thesis", "masters thesis":
		return types.FormatThesis
	case "article", "journal article", "preprint", "proceedings article", "posted content", "paper", "conference paper":
		return types.FormatArticle
	case "digital", "dataset", "software", "electronic resource", "e resource", "online resource":
		return types.FormatDigital
	case "":
		return ""
	default:
		return types.FormatOther
	}
}
