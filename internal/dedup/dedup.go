// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses normalized records that describe the same work
// into MergedRecords.
//
// Two records match when their ISBNs are equal and non-empty, or when their
// titles are similar enough, they share an author token and their years are
// close (an unknown year never blocks). Matching is pairwise; clusters are
// the transitive closure computed with union-find.
package dedup

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/pdiddy/catalog-aggregator/internal/logging"
	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/internal/score"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Ambiguity is a pair of records that looked alike but did not match and
// ended up in different clusters.
type Ambiguity struct {
	A, B            string
	TitleSimilarity float64
}

// Stats describes one merge pass.
type Stats struct {
	// Clusters counts merged records built from two or more inputs.
	Clusters int

	// DuplicatesMerged is the number of input records folded away.
	DuplicatesMerged int

	Ambiguities []Ambiguity
}

// Merger deduplicates records.
type Merger struct {
	cfg      types.MergeConfig
	scorer   *score.Scorer
	priority map[string]int
	logger   *zap.Logger
}

// New creates a Merger. priority maps source ids to their registered
// priority (lower wins ties); missing sources rank last. A nil scorer uses
// the default weights.
func New(cfg types.MergeConfig, scorer *score.Scorer, priority map[string]int, logger *zap.Logger) *Merger {
	if cfg.TitleThreshold <= 0 {
		cfg.TitleThreshold = types.DefaultMergeConfig().TitleThreshold
	}
	if cfg.YearTolerance < 0 {
		cfg.YearTolerance = 0
	}
	if scorer == nil {
		scorer = score.New(types.DefaultScoringWeights())
	}
	return &Merger{cfg: cfg, scorer: scorer, priority: priority, logger: logging.OrNop(logger)}
}

// Merge returns one MergedRecord per cluster, in order of each cluster's
// first input record.
func (m *Merger) Merge(records []types.BibliographicRecord, q types.Query) []types.MergedRecord {
	out, _ := m.MergeWithStats(records, q)
	return out
}

// MergeWithStats is Merge that also reports statistics and ambiguities.
func (m *Merger) MergeWithStats(records []types.BibliographicRecord, q types.Query) ([]types.MergedRecord, Stats) {
	keys := make([]matchKey, len(records))
	for i := range records {
		keys[i] = newMatchKey(records[i])
	}

	uf := newUnionFind(len(records))
	type near struct {
		i, j int
		sim  float64
	}
	var nearMisses []near
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			ok, sim := m.match(keys[i], keys[j])
			if ok {
				uf.union(i, j)
			} else if m.cfg.AmbiguityThreshold > 0 && sim >= m.cfg.AmbiguityThreshold {
				nearMisses = append(nearMisses, near{i, j, sim})
			}
		}
	}

	var stats Stats
	for _, n := range nearMisses {
		if uf.find(n.i) == uf.find(n.j) {
			continue
		}
		a := Ambiguity{A: records[n.i].ID, B: records[n.j].ID, TitleSimilarity: n.sim}
		stats.Ambiguities = append(stats.Ambiguities, a)
		m.logger.Warn("similar records not merged",
			zap.String("kind", string(types.ErrorMergeAmbiguity)),
			zap.String("a", a.A),
			zap.String("b", a.B),
			zap.String("title_a", records[n.i].Title),
			zap.String("title_b", records[n.j].Title),
			zap.Float64("title_similarity", n.sim),
		)
	}

	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = m.scorer.Score(records[i], q)
	}

	groups := uf.groups()
	out := make([]types.MergedRecord, 0, len(groups))
	for _, g := range groups {
		if len(g) > 1 {
			stats.Clusters++
			stats.DuplicatesMerged += len(g) - 1
		}
		out = append(out, m.build(records, scores, g))
	}
	return out, stats
}

type matchKey struct {
	isbn    string
	title   []rune
	authors map[string]bool
	year    types.Year
}

func newMatchKey(r types.BibliographicRecord) matchKey {
	k := matchKey{
		isbn:    r.ISBN,
		title:   []rune(normalize.FoldKey(r.Title)),
		authors: make(map[string]bool),
		year:    r.Year,
	}
	for _, a := range r.Authors {
		for _, tok := range normalize.Tokens(a) {
			if len([]rune(tok)) >= 2 {
				k.authors[tok] = true
			}
		}
	}
	return k
}

// match reports whether a and b are the same work, and their title
// similarity for ambiguity reporting.
func (m *Merger) match(a, b matchKey) (bool, float64) {
	sim := titleSimilarity(a.title, b.title)
	if a.isbn != "" && a.isbn == b.isbn {
		return true, sim
	}
	if sim < m.cfg.TitleThreshold {
		return false, sim
	}
	if !shareToken(a.authors, b.authors) {
		return false, sim
	}
	if a.year.Known() && b.year.Known() {
		d := int(a.year - b.year)
		if d < 0 {
			d = -d
		}
		if d > m.cfg.YearTolerance {
			return false, sim
		}
	}
	return true, sim
}

// titleSimilarity is 1 - editDistance/maxLen over folded titles.
func titleSimilarity(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	d := levenshtein.ComputeDistance(string(a), string(b))
	return 1 - float64(d)/float64(longest)
}

func shareToken(a, b map[string]bool) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// rank orders cluster members: higher confidence, then lower source
// priority, then higher score, then input order.
func (m *Merger) rank(records []types.BibliographicRecord, scores []float64, members []int) []int {
	ranked := append([]int(nil), members...)
	sort.SliceStable(ranked, func(x, y int) bool {
		a, b := records[ranked[x]], records[ranked[y]]
		if ca, cb := a.RawConfidence.Rank(), b.RawConfidence.Rank(); ca != cb {
			return ca > cb
		}
		if pa, pb := m.sourcePriority(a.SourceID), m.sourcePriority(b.SourceID); pa != pb {
			return pa < pb
		}
		if sa, sb := scores[ranked[x]], scores[ranked[y]]; sa != sb {
			return sa > sb
		}
		return ranked[x] < ranked[y]
	})
	return ranked
}

func (m *Merger) sourcePriority(id string) int {
	if p, ok := m.priority[id]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}
