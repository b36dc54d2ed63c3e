// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

func TestScore(t *testing.T) {
	rec := types.BibliographicRecord{
		Title:       "Pride and Prejudice",
		Authors:     []string{"Austen, Jane"},
		ISBN:        "9780141439518",
		Subjects:    []string{"Courtship -- Fiction", "Sisters"},
		Description: "Jane Austen's novel of manners, pride and prejudice in Regency England.",
	}

	tests := []struct {
		name  string
		query types.Query
		want  float64
	}{
		{"title and description substring", types.Query{Text: "pride and prejudice"}, 10 + 4},
		{"case and accents ignored", types.Query{Text: "PRÍDE"}, 10 + 4},
		{"author only", types.Query{Text: "austen"}, 8 + 4},
		{"subject only", types.Query{Text: "courtship"}, 6},
		{"no match", types.Query{Text: "yapay zeka"}, 0},
		{"isbn text dominates", types.Query{Text: "978-0-14-143951-8"}, 15},
		{"isbn-10 field matches isbn-13 record", types.Query{Fields: types.QueryFields{ISBN: "0141439513"}}, 15},
		{"structured title and author", types.Query{Fields: types.QueryFields{Title: "Prejudice", Author: "Jane"}}, 10 + 8},
		{"everything", types.Query{Text: "pride", Fields: types.QueryFields{Author: "austen", ISBN: "9780141439518"}}, 10 + 8 + 4 + 15},
	}
	s := New(types.ScoringWeights{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(rec, tt.query))
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := New(types.DefaultScoringWeights())
	rec := types.BibliographicRecord{Title: "Yapay Zeka", Authors: []string{"Nabiyev, Vasif"}}
	q := types.Query{Text: "yapay zeka", SearchType: types.SearchAll}
	first := s.Score(rec, q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(rec, q))
	}
}

func TestScore_CustomWeights(t *testing.T) {
	s := New(types.ScoringWeights{Title: 1, Author: 2, Subject: 3, Description: 4, ISBN: 5})
	rec := types.BibliographicRecord{Title: "Go", Authors: []string{"Go Team"}}
	assert.Equal(t, 3.0, s.Score(rec, types.Query{Text: "go"}))
}

func TestScoreMerged_AlternateISBN(t *testing.T) {
	s := New(types.DefaultScoringWeights())
	m := types.MergedRecord{
		BibliographicRecord: types.BibliographicRecord{Title: "Emma", ISBN: "9780141439587"},
		AlternateISBNs:      []string{"9780141439518"},
	}
	q := types.Query{Fields: types.QueryFields{ISBN: "9780141439518"}}
	assert.Equal(t, 15.0, s.ScoreMerged(m, q))
	assert.Equal(t, 0.0, s.Score(m.BibliographicRecord, q))
}
