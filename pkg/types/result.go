// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceStatus reports how one dispatched source fared.
type SourceStatus struct {
	SourceID    string    `json:"sourceId" yaml:"source_id"`
	Status      Status    `json:"status" yaml:"status"`
	Count       int       `json:"count" yaml:"count"`
	ElapsedMs   int64     `json:"elapsedMs" yaml:"elapsed_ms"`
	ErrorKind   ErrorKind `json:"errorKind,omitempty" yaml:"error_kind,omitempty"`
	ErrorDetail string    `json:"errorDetail,omitempty" yaml:"error_detail,omitempty"`

	// Skipped counts raw records dropped as malformed during normalization.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// AggregationResult is the only externally visible artifact of one
// aggregation call. It is built once and not modified afterwards.
type AggregationResult struct {
	RequestID        string         `json:"requestId" yaml:"request_id"`
	Query            Query          `json:"query" yaml:"query"`
	Records          []MergedRecord `json:"records" yaml:"records"`
	PerSourceStatus  []SourceStatus `json:"perSourceStatus" yaml:"per_source_status"`
	DuplicatesMerged int            `json:"duplicatesMerged" yaml:"duplicates_merged"`
	TotalElapsedMs   int64          `json:"totalElapsedMs" yaml:"total_elapsed_ms"`
	Timestamp        time.Time      `json:"timestamp" yaml:"timestamp"`
}

// Errors returns the statuses that did not complete successfully.
func (r AggregationResult) Errors() []SourceStatus {
	var out []SourceStatus
	for _, s := range r.PerSourceStatus {
		if s.Status != StatusOK {
			out = append(out, s)
		}
	}
	return out
}
