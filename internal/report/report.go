// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report assembles the AggregationResult and renders it as a
// table, JSON or CSL-YAML, or saves it to a result file.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// Builder assembles results. The zero value uses the wall clock, random
// UUIDs and no result cap.
type Builder struct {
	Now   func() time.Time
	NewID func() string

	// MaxResults truncates the sorted record list (0 keeps everything).
	MaxResults int
}

// Build packages one aggregation. It copies its inputs, sorts records by
// merge score descending, then by number of contributing sources
// descending, then by title, and computes the elapsed time from start.
func (b Builder) Build(q types.Query, merged []types.MergedRecord, statuses []types.SourceStatus, start time.Time) types.AggregationResult {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	newID := uuid.NewString
	if b.NewID != nil {
		newID = b.NewID
	}

	records := make([]types.MergedRecord, len(merged))
	copy(records, merged)
	SortRecords(records)
	if b.MaxResults > 0 && len(records) > b.MaxResults {
		records = records[:b.MaxResults]
	}

	dups := 0
	for _, r := range merged {
		if n := len(r.Identifiers); n > 1 {
			dups += n - 1
		}
	}

	perSource := make([]types.SourceStatus, len(statuses))
	copy(perSource, statuses)

	ts := now()
	return types.AggregationResult{
		RequestID:        newID(),
		Query:            q,
		Records:          records,
		PerSourceStatus:  perSource,
		DuplicatesMerged: dups,
		TotalElapsedMs:   ts.Sub(start).Milliseconds(),
		Timestamp:        ts,
	}
}

// SortRecords orders records for presentation. Ties that survive every
// key fall back to the record id so the order is total.
func SortRecords(records []types.MergedRecord) {
	keys := make(map[string]string, len(records))
	for _, r := range records {
		keys[r.ID] = normalize.FoldKey(r.Title)
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.MergeScore != b.MergeScore {
			return a.MergeScore > b.MergeScore
		}
		if len(a.ContributingSourceIDs) != len(b.ContributingSourceIDs) {
			return len(a.ContributingSourceIDs) > len(b.ContributingSourceIDs)
		}
		if ka, kb := keys[a.ID], keys[b.ID]; ka != kb {
			return ka < kb
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// Status converts one fan-out result into its report entry. count is the
// number of records that normalized cleanly and skipped the number that
// did not.
func Status(res types.RawSourceResult, count, skipped int) types.SourceStatus {
	return types.SourceStatus{
		SourceID:    res.SourceID,
		Status:      res.Status,
		Count:       count,
		ElapsedMs:   res.Elapsed.Milliseconds(),
		ErrorKind:   res.ErrorKind,
		ErrorDetail: res.ErrorDetail,
		Skipped:     skipped,
	}
}
