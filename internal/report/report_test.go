// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testBuilder() Builder {
	return Builder{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "req-1" },
	}
}

func mr(id, title string, score float64, sources ...string) types.MergedRecord {
	r := types.MergedRecord{
		BibliographicRecord: types.BibliographicRecord{
			ID:       id,
			Title:    title,
			Authors:  []string{},
			Year:     types.YearUnknown,
			Format:   types.FormatBook,
			SourceID: sources[0],
		},
		ContributingSourceIDs: sources,
		MergeScore:            score,
	}
	for _, s := range sources {
		r.Identifiers = append(r.Identifiers, types.SourceIdentifier{SourceID: s, RecordID: s + ":" + id})
	}
	return r
}

func TestBuildOrdering(t *testing.T) {
	merged := []types.MergedRecord{
		mr("a", "Zebra", 10, "loc"),
		mr("b", "Apple", 10, "loc"),
		mr("c", "Mango", 10, "loc", "bl"),
		mr("d", "apple", 25, "bl"),
		mr("e", "Banana", 0, "dnb"),
	}
	res := testBuilder().Build(types.Query{Text: "x"}, merged, nil, fixedNow.Add(-1500*time.Millisecond))

	var got []string
	for _, r := range res.Records {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"d", "c", "b", "a", "e"}, got)
	assert.Equal(t, "a", merged[0].ID, "input not reordered")

	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, int64(1500), res.TotalElapsedMs)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.Equal(t, 1, res.DuplicatesMerged)
}

func TestBuildKeepsEveryStatus(t *testing.T) {
	statuses := []types.SourceStatus{
		{SourceID: "loc", Status: types.StatusOK, Count: 3},
		{SourceID: "bl", Status: types.StatusTimeout, ErrorKind: types.ErrorSourceTimeout},
		{SourceID: "dnb", Status: types.StatusError, ErrorKind: types.ErrorSource, ErrorDetail: "HTTP 500"},
		{SourceID: "empty", Status: types.StatusOK},
	}
	res := testBuilder().Build(types.Query{Text: "x"}, nil, statuses, fixedNow)

	assert.Equal(t, statuses, res.PerSourceStatus)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
	assert.Len(t, res.Errors(), 2)

	res.PerSourceStatus[0].Count = 99
	assert.Equal(t, 3, statuses[0].Count, "statuses are copied")
}

func TestBuildMaxResults(t *testing.T) {
	merged := []types.MergedRecord{mr("a", "A", 1, "x"), mr("b", "B", 3, "x"), mr("c", "C", 2, "x")}
	b := testBuilder()
	b.MaxResults = 2
	res := b.Build(types.Query{Text: "x"}, merged, nil, fixedNow)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "b", res.Records[0].ID)
	assert.Equal(t, "c", res.Records[1].ID)
}

func TestBuildDefaultsUUID(t *testing.T) {
	res := Builder{}.Build(types.Query{Text: "x"}, nil, nil, time.Now())
	assert.Len(t, res.RequestID, 36)
}

func TestStatus(t *testing.T) {
	s := Status(types.RawSourceResult{
		SourceID:    "bl",
		Status:      types.StatusError,
		ErrorKind:   types.ErrorSource,
		ErrorDetail: "boom",
		Elapsed:     1234 * time.Millisecond,
	}, 0, 2)
	assert.Equal(t, types.SourceStatus{
		SourceID: "bl", Status: types.StatusError, ElapsedMs: 1234,
		ErrorKind: types.ErrorSource, ErrorDetail: "boom", Skipped: 2,
	}, s)
}

func sampleResult() types.AggregationResult {
	rec := mr("loc:0", "Pride and Prejudice", 33, "bl", "loc")
	rec.Authors = []string{"Austen, Jane"}
	rec.ISBN = "9780141439518"
	rec.Year = 1813
	rec.Publisher = "T. Egerton"
	rec.LibraryInfo = &types.LibraryInfo{Institution: "Library of Congress", CallNumber: "PR4034 .P7"}
	rec.CitationInfo = &types.CitationInfo{Count: 5, Counts: map[string]int{"openalex": 5}}

	unknown := mr("bl:3", "Untitled pamphlet", 4, "bl")

	return testBuilder().Build(types.Query{Text: "pride", SearchType: types.SearchTitle}, []types.MergedRecord{rec, unknown}, []types.SourceStatus{
		{SourceID: "loc", Status: types.StatusOK, Count: 1, ElapsedMs: 120},
		{SourceID: "bl", Status: types.StatusOK, Count: 2, ElapsedMs: 300, Skipped: 1},
		{SourceID: "dnb", Status: types.StatusTimeout, ErrorDetail: "no response within 10s", ElapsedMs: 10000},
	}, fixedNow.Add(-2*time.Second))
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleResult(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Pride and Prejudice")
	assert.Contains(t, out, "1813")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "bl,loc")
	assert.Contains(t, out, "2 results (1 duplicates merged) in 2000ms")
	assert.Contains(t, out, "(1 skipped)")
	assert.Contains(t, out, "no response within 10s")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.AggregationResult{PerSourceStatus: []types.SourceStatus{{SourceID: "a", Status: types.StatusError}}}, &buf)
	assert.True(t, strings.HasPrefix(buf.String(), "No results found."))
	assert.Contains(t, buf.String(), "a ")
}

func TestFormatJSONFieldPresence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleResult(), &buf))

	var doc struct {
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 2)

	second := doc.Records[1]
	assert.Equal(t, []any{}, second["authors"])
	assert.Equal(t, "", second["isbn"])
	assert.Equal(t, "unknown", second["year"])
	assert.Equal(t, float64(1813), doc.Records[0]["year"])
}

func TestFormatCSL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatCSL(sampleResult(), &buf))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "book", items[0].Type)
	assert.Equal(t, []CSLName{{Family: "Austen", Given: "Jane"}}, items[0].Author)
	assert.Equal(t, [][]int{{1813}}, items[0].Issued.DateParts)
	assert.Equal(t, "9780141439518", items[0].ISBN)
	assert.Equal(t, "PR4034 .P7", items[0].CallNum)
	assert.Nil(t, items[1].Issued)
}

func TestParseAuthorName(t *testing.T) {
	assert.Equal(t, CSLName{Family: "Austen", Given: "Jane"}, parseAuthorName("Austen, Jane"))
	assert.Equal(t, CSLName{Family: "Vaswani", Given: "Ashish"}, parseAuthorName("Ashish Vaswani"))
	assert.Equal(t, CSLName{Literal: "Homer"}, parseAuthorName("Homer"))
	assert.Equal(t, CSLName{}, parseAuthorName("  "))
}

func TestResultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.yaml")
	want := sampleResult()
	require.NoError(t, WriteResultFile(path, want))

	got, err := ReadResultFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.RequestID, got.RequestID)
	require.Len(t, got.Records, 2)
	assert.Equal(t, types.Year(1813), got.Records[0].Year)
	assert.Equal(t, types.YearUnknown, got.Records[1].Year)
	assert.Equal(t, []string{"bl", "loc"}, got.Records[0].ContributingSourceIDs)
	assert.Equal(t, "Library of Congress", got.Records[0].LibraryInfo.Institution)
	assert.Equal(t, want.PerSourceStatus, got.PerSourceStatus)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
}

func TestReadResultFileMissing(t *testing.T) {
	_, err := ReadResultFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "Yapay zekâ", truncate("Yapay zekâ", 10))
	assert.Equal(t, "Çok uzun ...", truncate("Çok uzun bir başlık", 12))
}
