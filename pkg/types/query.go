// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the catalog-aggregator
// pipeline: the query, source descriptors, raw per-source records, the
// canonical bibliographic record, merged records and the aggregation result.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// SearchType narrows how a catalog should interpret the query text.
type SearchType string

const (
	SearchTitle   SearchType = "title"
	SearchAuthor  SearchType = "author"
	SearchISBN    SearchType = "isbn"
	SearchSubject SearchType = "subject"
	SearchKeyword SearchType = "keyword"
	SearchAll     SearchType = "all"
)

// ParseSearchType maps a user-supplied string to a SearchType. An empty
// string yields SearchAll.
func ParseSearchType(s string) (SearchType, error) {
	switch st := SearchType(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return SearchAll, nil
	case SearchTitle, SearchAuthor, SearchISBN, SearchSubject, SearchKeyword, SearchAll:
		return st, nil
	default:
		return "", fmt.Errorf("unknown search type %q", s)
	}
}

// ErrEmptyQuery is returned when a query carries no searchable terms.
var ErrEmptyQuery = errors.New("query is empty: provide query text or at least one structured field")

// QueryFields holds the optional structured parts of a query.
type QueryFields struct {
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	ISBN   string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Year   Year   `json:"year,omitempty" yaml:"year,omitempty"`
}

// Query is a single user search. It is passed by value and must not be
// modified once dispatched.
type Query struct {
	Text       string      `json:"text" yaml:"text"`
	Fields     QueryFields `json:"fields" yaml:"fields"`
	SearchType SearchType  `json:"searchType" yaml:"search_type"`
}

// IsEmpty reports whether the query contains no searchable terms.
// A year alone does not make a query searchable.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" &&
		strings.TrimSpace(q.Fields.Title) == "" &&
		strings.TrimSpace(q.Fields.Author) == "" &&
		strings.TrimSpace(q.Fields.ISBN) == ""
}

// Validate checks the query for searchable terms and a known search type.
func (q Query) Validate() error {
	if q.IsEmpty() {
		return ErrEmptyQuery
	}
	if q.SearchType != "" {
		if _, err := ParseSearchType(string(q.SearchType)); err != nil {
			return err
		}
	}
	return nil
}

// EffectiveType returns the search type, defaulting to SearchAll.
func (q Query) EffectiveType() SearchType {
	if q.SearchType == "" {
		return SearchAll
	}
	return q.SearchType
}

// Terms returns the query text joined with the structured title and author,
// for backends that accept a single free-text string.
func (q Query) Terms() string {
	var parts []string
	for _, s := range []string{q.Text, q.Fields.Title, q.Fields.Author, q.Fields.ISBN} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
