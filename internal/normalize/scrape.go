// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var (
	scrapeISBN       = regexp.MustCompile(`(?i)(?:isbn[:\s]*)?\b((?:97[89][-\s]?)?(?:\d[-\s]?){9}[\dX])\b`)
	scrapeBy         = regexp.MustCompile(`(?i)^by\s+(.+)$`)
	scrapeLabel      = regexp.MustCompile(`(?i)^(author|yazar|verfasser|auteur|publisher|yayınevi|verlag|éditeur|call number|yer numarası|signatur|cote)\s*:\s*(.+)$`)
	scrapeAuthorSep  = regexp.MustCompile(`\s*(?:;|\band\b|&)\s*`)
	scrapeStatementR = regexp.MustCompile(`^(.+?)\s+/\s+(.+)$`)
)

// scrapeStrategy extracts what it can from OPAC result text using
// heuristics. Results are always low confidence.
//
// The first non-empty line is the title. A title line of the ISBD form
// "Title / Author" is split. Later lines are matched against "by ...",
// labelled fields, an ISBN and a year.
type scrapeStrategy struct{}

func (scrapeStrategy) normalize(raw types.RawRecord, src types.SourceDescriptor) (types.BibliographicRecord, error) {
	s, ok := raw.(types.ScrapedRecord)
	if !ok {
		return types.BibliographicRecord{}, fmt.Errorf("expected scraped record, got %T", raw)
	}

	var lines []string
	for _, l := range strings.Split(s.Text, "\n") {
		if l = CleanText(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return types.BibliographicRecord{}, errors.New("scraped record has no text")
	}

	title := lines[0]
	var authors []string
	if m := scrapeStatementR.FindStringSubmatch(title); m != nil {
		title = m[1]
		authors = append(authors, scrapeAuthorSep.Split(m[2], -1)...)
	}
	title = trimPunct(title)

	var publisher, callNumber, isbn string
	year := types.YearUnknown
	for _, l := range lines[1:] {
		if m := scrapeBy.FindStringSubmatch(l); m != nil {
			authors = append(authors, scrapeAuthorSep.Split(m[1], -1)...)
			continue
		}
		if m := scrapeLabel.FindStringSubmatch(l); m != nil {
			switch label := FoldKey(m[1]); label {
			case "author", "yazar", "verfasser", "auteur":
				authors = append(authors, scrapeAuthorSep.Split(m[2], -1)...)
			case "publisher", "yayınevi", "yayinevi", "verlag", "editeur":
				if publisher == "" {
					publisher = trimPunct(m[2])
				}
			default:
				if callNumber == "" {
					callNumber = CleanText(m[2])
				}
			}
			continue
		}
		if isbn == "" {
			if m := scrapeISBN.FindStringSubmatch(l); m != nil {
				isbn, _ = NormalizeISBN(m[1])
				continue
			}
		}
		if !year.Known() {
			year = ParseYear(l)
		}
	}

	return types.BibliographicRecord{
		Title:         title,
		Authors:       cleanList(authors, trimPunct),
		ISBN:          isbn,
		Year:          year,
		Publisher:     publisher,
		Format:        types.FormatBook,
		URL:           strings.TrimSpace(s.Link),
		RawConfidence: types.ConfidenceLow,
		LibraryInfo:   libraryInfo(src, "", callNumber),
	}, nil
}
