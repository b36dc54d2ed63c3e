// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes a deterministic relevance score for a record
// against a query. Scores only order records within one aggregation call.
package score

import (
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Scorer awards fixed points per matched field.
type Scorer struct {
	weights types.ScoringWeights
}

// New returns a Scorer with the given weights. A zero value selects the
// defaults.
func New(w types.ScoringWeights) *Scorer {
	if w == (types.ScoringWeights{}) {
		w = types.DefaultScoringWeights()
	}
	return &Scorer{weights: w}
}

// Weights returns the weights in use.
func (s *Scorer) Weights() types.ScoringWeights { return s.weights }

// Score sums the weights of every field the query matches:
//
//   - title: query text or structured title is a substring of the title
//   - author: query text or structured author is a substring of an author
//   - subject: query text is a substring of a subject
//   - description: query text is a substring of the description
//   - ISBN: the query ISBN equals the record ISBN
//
// Matching is case and diacritic insensitive. Each field counts once.
func (s *Scorer) Score(rec types.BibliographicRecord, q types.Query) float64 {
	return s.score(rec, nil, q)
}

// ScoreMerged scores a merged record; its alternate ISBNs also count as
// ISBN matches.
func (s *Scorer) ScoreMerged(rec types.MergedRecord, q types.Query) float64 {
	return s.score(rec.BibliographicRecord, rec.AlternateISBNs, q)
}

func (s *Scorer) score(rec types.BibliographicRecord, altISBNs []string, q types.Query) float64 {
	text := normalize.FoldKey(q.Text)
	title := normalize.FoldKey(q.Fields.Title)
	author := normalize.FoldKey(q.Fields.Author)

	var total float64
	recTitle := normalize.FoldKey(rec.Title)
	if contains(recTitle, text) || contains(recTitle, title) {
		total += s.weights.Title
	}
	for _, a := range rec.Authors {
		fa := normalize.FoldKey(a)
		if contains(fa, text) || contains(fa, author) {
			total += s.weights.Author
			break
		}
	}
	for _, sub := range rec.Subjects {
		if contains(normalize.FoldKey(sub), text) {
			total += s.weights.Subject
			break
		}
	}
	if contains(normalize.FoldKey(rec.Description), text) {
		total += s.weights.Description
	}
	if isbn := queryISBN(q); isbn != "" {
		if isbn == rec.ISBN {
			total += s.weights.ISBN
		} else {
			for _, alt := range altISBNs {
				if isbn == alt {
					total += s.weights.ISBN
					break
				}
			}
		}
	}
	return total
}

// contains reports a non-empty needle inside haystack.
func contains(haystack, needle string) bool {
	return needle != "" && haystack != "" && strings.Contains(haystack, needle)
}

// queryISBN returns the structured ISBN, or the query text when it is
// itself a valid ISBN, in normalized form.
func queryISBN(q types.Query) string {
	if q.Fields.ISBN != "" {
		n, _ := normalize.NormalizeISBN(q.Fields.ISBN)
		return n
	}
	if n, ok := normalize.NormalizeISBN(q.Text); ok && len(strings.Fields(q.Text)) <= 2 {
		return n
	}
	return ""
}
