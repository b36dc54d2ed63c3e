// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// marcStrategy maps MARC21 bibliographic records. Structured fields give
// high confidence.
type marcStrategy struct{}

func (marcStrategy) normalize(raw types.RawRecord, src types.SourceDescriptor) (types.BibliographicRecord, error) {
	m, ok := raw.(types.MARCRecord)
	if !ok {
		return types.BibliographicRecord{}, fmt.Errorf("expected MARC record, got %T", raw)
	}
	r := marcView(m)

	title := trimPunct(strings.Join(nonEmpty(r.sub("245", 'a'), r.sub("245", 'b')), " "))
	if title == "" {
		return types.BibliographicRecord{}, errors.New("MARC record has no 245 title")
	}

	var authors []string
	for _, tag := range []string{"100", "110", "700", "710"} {
		authors = append(authors, r.subAll(tag, 'a')...)
	}

	isbns := r.subAll("020", 'a')
	publisher := trimPunct(firstOf(r.sub("264", 'b'), r.sub("260", 'b')))

	year := types.YearUnknown
	if f008 := r.control("008"); len(f008) >= 11 {
		year = ParseYear(f008[7:11])
	}
	if !year.Known() {
		year = ParseYear(firstOf(r.sub("264", 'c'), r.sub("260", 'c')))
	}

	lang := r.sub("041", 'a')
	if f008 := r.control("008"); lang == "" && len(f008) >= 38 {
		lang = strings.TrimSpace(f008[35:38])
	}

	callNumber := CleanText(strings.Join(nonEmpty(r.sub("852", 'h'), r.sub("852", 'i')), " "))
	if callNumber == "" {
		callNumber = CleanText(strings.Join(nonEmpty(r.sub("050", 'a'), r.sub("050", 'b')), " "))
	}
	if callNumber == "" {
		callNumber = CleanText(strings.Join(nonEmpty(r.sub("090", 'a'), r.sub("090", 'b')), " "))
	}

	rec := types.BibliographicRecord{
		SourceRecordID: strings.TrimSpace(r.control("001")),
		Title:          title,
		Authors:        cleanList(authors, trimPunct),
		ISBN:           firstISBN(isbns),
		ISSN:           CleanText(r.sub("022", 'a')),
		Year:           year,
		Publisher:      publisher,
		Format:         r.format(),
		Subjects:       nilIfEmpty(cleanList(r.subAll("650", 'a'), trimPunct)),
		Description:    CleanText(r.sub("520", 'a')),
		DOI:            r.doi(),
		Language:       lang,
		URL:            strings.TrimSpace(r.sub("856", 'u')),
		RawConfidence:  types.ConfidenceHigh,
		LibraryInfo:    libraryInfo(src, CleanText(r.sub("852", 'a')), callNumber),
	}
	return rec, nil
}

type marcView types.MARCRecord

func (r marcView) control(tag string) string {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Value
		}
	}
	return ""
}

// sub returns the first subfield code of the first field with tag.
func (r marcView) sub(tag string, code byte) string {
	for _, f := range r.Fields {
		if f.Tag != tag {
			continue
		}
		for _, s := range f.Subfields {
			if len(s.Code) == 1 && s.Code[0] == code {
				return s.Value
			}
		}
	}
	return ""
}

// subAll returns subfield code from every field with tag.
func (r marcView) subAll(tag string, code byte) []string {
	var out []string
	for _, f := range r.Fields {
		if f.Tag != tag {
			continue
		}
		for _, s := range f.Subfields {
			if len(s.Code) == 1 && s.Code[0] == code {
				out = append(out, s.Value)
			}
		}
	}
	return out
}

func (r marcView) has(tag string) bool {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return true
		}
	}
	return false
}

func (r marcView) doi() string {
	for _, f := range r.Fields {
		if f.Tag != "024" {
			continue
		}
		var value, scheme string
		for _, s := range f.Subfields {
			switch s.Code {
			case "a":
				value = s.Value
			case "2":
				scheme = s.Value
			}
		}
		if strings.EqualFold(scheme, "doi") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// format reads the type of record (leader/06) and bibliographic level
// (leader/07). A 502 dissertation note marks a thesis.
func (r marcView) format() types.Format {
	if r.has("502") {
		return types.FormatThesis
	}
	if len(r.Leader) < 8 {
		return types.FormatOther
	}
	typ, level := r.Leader[6], r.Leader[7]
	switch {
	case typ == 'm':
		return types.FormatDigital
	case level == 'a' || level == 'b':
		return types.FormatArticle
	case level == 's':
		return types.FormatJournal
	case (typ == 'a' || typ == 't') && (level == 'm' || level == 'c'):
		return types.FormatBook
	default:
		return types.FormatOther
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
