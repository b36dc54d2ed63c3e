// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// apiStrategy maps well-typed records from bibliographic APIs. Every field
// arrives explicitly named, so confidence is high.
type apiStrategy struct{}

func (apiStrategy) normalize(raw types.RawRecord, _ types.SourceDescriptor) (types.BibliographicRecord, error) {
	a, ok := raw.(types.APIRecord)
	if !ok {
		return types.BibliographicRecord{}, fmt.Errorf("expected API record, got %T", raw)
	}

	title := CleanTitle(a.Title)
	if sub := CleanTitle(a.Subtitle); sub != "" && title != "" {
		title = title + ": " + sub
	}
	if title == "" {
		return types.BibliographicRecord{}, errors.New("API record has no title")
	}

	year := YearFromInt(a.Year)
	if !year.Known() {
		year = ParseYear(a.PublishDate)
	}

	format := FormatFromType(a.Type)
	if format == "" {
		format = types.FormatOther
	}

	return types.BibliographicRecord{
		SourceRecordID: a.ID,
		Title:          title,
		Authors:        cleanList(a.Authors, CleanText),
		ISBN:           firstISBN(a.ISBNs),
		ISSN:           CleanText(a.ISSN),
		Year:           year,
		Publisher:      CleanText(a.Publisher),
		Format:         format,
		Subjects:       nilIfEmpty(cleanList(a.Subjects, CleanText)),
		Description:    CleanText(a.Description),
		DOI:            cleanDOI(a.DOI),
		Language:       CleanText(a.Language),
		URL:            strings.TrimSpace(a.URL),
		RawConfidence:  types.ConfidenceHigh,
	}, nil
}

// cleanDOI strips resolver prefixes so DOIs compare as bare "10.x/y".
func cleanDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return s[len(p):]
		}
	}
	return s
}
