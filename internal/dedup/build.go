// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"sort"

	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// build folds one cluster. The best-ranked member supplies title, authors
// and year; empty scalar fields are filled from the other members in rank
// order. Subjects are unioned. Every member is listed in Identifiers and
// differing ISBNs are kept in AlternateISBNs.
func (m *Merger) build(records []types.BibliographicRecord, scores []float64, members []int) types.MergedRecord {
	ranked := m.rank(records, scores, members)
	canon := cloneRecord(records[ranked[0]])

	sources := make(map[string]bool)
	var subjects []string
	seenSubject := make(map[string]bool)
	alternates := make(map[string]bool)
	best := scores[ranked[0]]

	for _, idx := range ranked {
		r := records[idx]
		sources[r.SourceID] = true
		if scores[idx] > best {
			best = scores[idx]
		}
		for _, s := range r.Subjects {
			if k := normalize.FoldKey(s); k != "" && !seenSubject[k] {
				seenSubject[k] = true
				subjects = append(subjects, s)
			}
		}
		if idx == ranked[0] {
			continue
		}
		fillString(&canon.ISBN, r.ISBN)
		fillString(&canon.ISSN, r.ISSN)
		fillString(&canon.Publisher, r.Publisher)
		fillString(&canon.Description, r.Description)
		fillString(&canon.DOI, r.DOI)
		fillString(&canon.Language, r.Language)
		fillString(&canon.URL, r.URL)
		if !canon.Year.Known() && r.Year.Known() {
			canon.Year = r.Year
		}
		if len(canon.Authors) == 0 && len(r.Authors) > 0 {
			canon.Authors = append([]string{}, r.Authors...)
		}
		if canon.Format == types.FormatOther && r.Format != "" {
			canon.Format = r.Format
		}
		if canon.LibraryInfo == nil && r.LibraryInfo != nil {
			li := *r.LibraryInfo
			canon.LibraryInfo = &li
		}
	}
	canon.Subjects = subjects

	for _, idx := range members {
		if isbn := records[idx].ISBN; isbn != "" && isbn != canon.ISBN {
			alternates[isbn] = true
		}
	}

	out := types.MergedRecord{
		BibliographicRecord:   canon,
		ContributingSourceIDs: sortedKeys(sources),
		MergeScore:            best,
		Identifiers:           make([]types.SourceIdentifier, 0, len(members)),
	}
	if len(alternates) > 0 {
		out.AlternateISBNs = sortedKeys(alternates)
	}
	for _, idx := range members {
		r := records[idx]
		id := types.SourceIdentifier{
			SourceID:       r.SourceID,
			RecordID:       r.ID,
			SourceRecordID: r.SourceRecordID,
			ISBN:           r.ISBN,
		}
		if r.LibraryInfo != nil {
			id.CallNumber = r.LibraryInfo.CallNumber
			id.Institution = r.LibraryInfo.Institution
		}
		out.Identifiers = append(out.Identifiers, id)
	}
	return out
}

func fillString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// cloneRecord copies r so the merged record shares no slices or pointers
// with its inputs.
func cloneRecord(r types.BibliographicRecord) types.BibliographicRecord {
	c := r
	c.Authors = append([]string{}, r.Authors...)
	if r.Subjects != nil {
		c.Subjects = append([]string(nil), r.Subjects...)
	}
	if r.LibraryInfo != nil {
		li := *r.LibraryInfo
		c.LibraryInfo = &li
	}
	if r.CitationInfo != nil {
		ci := *r.CitationInfo
		ci.Counts = make(map[string]int, len(r.CitationInfo.Counts))
		for k, v := range r.CitationInfo.Counts {
			ci.Counts[k] = v
		}
		c.CitationInfo = &ci
	}
	if r.PDFAccess != nil {
		pa := types.PDFAccess{Links: append([]types.PDFLink(nil), r.PDFAccess.Links...)}
		c.PDFAccess = &pa
	}
	return c
}
