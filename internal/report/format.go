// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// FormatTable writes a human-readable table followed by per-source status.
func FormatTable(res types.AggregationResult, w io.Writer) {
	if len(res.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-50s  %-20s  %-7s  %-13s  %-6s  %s\n",
			"Rank", "Title", "Authors", "Year", "ISBN", "Score", "Sources")
		fmt.Fprintln(w, strings.Repeat("-", 120))
		for i, r := range res.Records {
			fmt.Fprintf(w, "%-4d  %-50s  %-20s  %-7s  %-13s  %-6.1f  %s\n",
				i+1,
				pad(truncate(r.Title, 50), 50),
				pad(formatAuthors(r.Authors), 20),
				r.Year.String(),
				r.ISBN,
				r.MergeScore,
				strings.Join(r.ContributingSourceIDs, ","))
		}
		fmt.Fprintf(w, "\n%d results", len(res.Records))
		if res.DuplicatesMerged > 0 {
			fmt.Fprintf(w, " (%d duplicates merged)", res.DuplicatesMerged)
		}
		fmt.Fprintf(w, " in %dms\n", res.TotalElapsedMs)
	}

	fmt.Fprintln(w)
	for _, s := range res.PerSourceStatus {
		line := fmt.Sprintf("  %-20s  %-7s  %4d records  %6dms", s.SourceID, s.Status, s.Count, s.ElapsedMs)
		if s.Skipped > 0 {
			line += fmt.Sprintf("  (%d skipped)", s.Skipped)
		}
		if s.ErrorDetail != "" {
			line += "  " + s.ErrorDetail
		}
		fmt.Fprintln(w, line)
	}
}

// FormatJSON writes the whole result as indented JSON.
func FormatJSON(res types.AggregationResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID        string    `yaml:"id"`
	Type      string    `yaml:"type"`
	Title     string    `yaml:"title"`
	Author    []CSLName `yaml:"author,omitempty"`
	Issued    *CSLDate  `yaml:"issued,omitempty"`
	Publisher string    `yaml:"publisher,omitempty"`
	ISBN      string    `yaml:"ISBN,omitempty"`
	ISSN      string    `yaml:"ISSN,omitempty"`
	DOI       string    `yaml:"DOI,omitempty"`
	URL       string    `yaml:"URL,omitempty"`
	Abstract  string    `yaml:"abstract,omitempty"`
	Language  string    `yaml:"language,omitempty"`
	CallNum   string    `yaml:"call-number,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date-parts value.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the records as a CSL-YAML list.
func FormatCSL(res types.AggregationResult, w io.Writer) error {
	items := make([]CSLItem, len(res.Records))
	for i, r := range res.Records {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.MergedRecord) CSLItem {
	item := CSLItem{
		ID:        r.ID,
		Type:      cslType(r.Format),
		Title:     r.Title,
		Publisher: r.Publisher,
		ISBN:      r.ISBN,
		ISSN:      r.ISSN,
		DOI:       r.DOI,
		URL:       r.URL,
		Abstract:  r.Description,
		Language:  r.Language,
	}
	for _, a := range r.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if r.Year.Known() {
		item.Issued = &CSLDate{DateParts: [][]int{{int(r.Year)}}}
	}
	if r.LibraryInfo != nil {
		item.CallNum = r.LibraryInfo.CallNumber
	}
	return item
}

func cslType(f types.Format) string {
	switch f {
	case types.FormatBook:
		return "book"
	case types.FormatJournal:
		return "periodical"
	case types.FormatThesis:
		return "thesis"
	case types.FormatArticle:
		return "article-journal"
	case types.FormatDigital:
		return "webpage"
	default:
		return "document"
	}
}

// parseAuthorName splits a name into CSL family/given parts. Catalog
// headings use "Family, Given"; other names split on the last space.
// Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

// pad right-pads by rune count; fmt widths count bytes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
