// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// SRU queries a catalog through the SRU searchRetrieve operation and
// returns MARCXML records. National library catalogs (Library of Congress,
// BnF, DNB) expose this interface.
type SRU struct {
	Client   *http.Client
	Endpoint string

	// Version is the SRU protocol version (default "1.1").
	Version string

	// RecordSchema is requested from the server (default "marcxml").
	RecordSchema string

	// Indexes overrides the CQL index per search type. Missing entries use
	// the Dublin Core / bath defaults.
	Indexes map[types.SearchType]string
}

var defaultCQLIndexes = map[types.SearchType]string{
	types.SearchTitle:   "dc.title",
	types.SearchAuthor:  "dc.creator",
	types.SearchISBN:    "bath.isbn",
	types.SearchSubject: "dc.subject",
	types.SearchKeyword: "cql.serverChoice",
	types.SearchAll:     "cql.serverChoice",
}

// Search runs one searchRetrieve request.
func (s *SRU) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	cql := s.buildCQL(query)
	if cql == "" {
		return nil, errors.New("empty SRU query")
	}

	version := s.Version
	if version == "" {
		version = "1.1"
	}
	schema := s.RecordSchema
	if schema == "" {
		schema = "marcxml"
	}

	params := url.Values{
		"version":        {version},
		"operation":      {"searchRetrieve"},
		"query":          {cql},
		"maximumRecords": {strconv.Itoa(limit(opts, 100))},
		"recordSchema":   {schema},
	}
	reqURL := s.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(s.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("SRU request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("SRU server: %w", err)
	}

	var sr sruResponse
	if err := xml.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SRU response: %w", err)
	}
	if len(sr.Diagnostics) > 0 && len(sr.Records) == 0 {
		d := sr.Diagnostics[0]
		return nil, fmt.Errorf("SRU diagnostic %s: %s", d.URI, strings.TrimSpace(d.Message+" "+d.Details))
	}

	records := make([]types.RawRecord, 0, len(sr.Records))
	for _, r := range sr.Records {
		records = append(records, r.Data.MARC.toRecord())
	}
	return records, nil
}

// buildCQL maps the query text through the search type's index and adds
// a clause per structured field.
func (s *SRU) buildCQL(q types.Query) string {
	var clauses []string
	if text := strings.TrimSpace(q.Text); text != "" {
		clauses = append(clauses, s.index(q.EffectiveType())+"="+cqlQuote(text))
	}
	if v := strings.TrimSpace(q.Fields.Title); v != "" {
		clauses = append(clauses, s.index(types.SearchTitle)+"="+cqlQuote(v))
	}
	if v := strings.TrimSpace(q.Fields.Author); v != "" {
		clauses = append(clauses, s.index(types.SearchAuthor)+"="+cqlQuote(v))
	}
	if v := strings.TrimSpace(q.Fields.ISBN); v != "" {
		clauses = append(clauses, s.index(types.SearchISBN)+"="+cqlQuote(v))
	}
	return strings.Join(clauses, " and ")
}

func (s *SRU) index(st types.SearchType) string {
	if idx, ok := s.Indexes[st]; ok && idx != "" {
		return idx
	}
	return defaultCQLIndexes[st]
}

func cqlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// SRU / MARCXML structures. Namespaces are ignored; elements match by
// local name.
type sruResponse struct {
	XMLName     xml.Name        `xml:"searchRetrieveResponse"`
	Records     []sruRecord     `xml:"records>record"`
	Diagnostics []sruDiagnostic `xml:"diagnostics>diagnostic"`
}

type sruRecord struct {
	Data sruRecordData `xml:"recordData"`
}

type sruRecordData struct {
	MARC marcXMLRecord `xml:"record"`
}

type sruDiagnostic struct {
	URI     string `xml:"uri"`
	Details string `xml:"details"`
	Message string `xml:"message"`
}

type marcXMLRecord struct {
	Leader        string             `xml:"leader"`
	ControlFields []marcControlField `xml:"controlfield"`
	DataFields    []marcDataField    `xml:"datafield"`
}

type marcControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type marcDataField struct {
	Tag       string               `xml:"tag,attr"`
	Ind1      string               `xml:"ind1,attr"`
	Ind2      string               `xml:"ind2,attr"`
	Subfields []types.MARCSubfield `xml:"subfield"`
}

func (m marcXMLRecord) toRecord() types.MARCRecord {
	rec := types.MARCRecord{Leader: m.Leader}
	for _, c := range m.ControlFields {
		rec.Fields = append(rec.Fields, types.MARCField{Tag: c.Tag, Value: c.Value})
	}
	for _, d := range m.DataFields {
		rec.Fields = append(rec.Fields, types.MARCField{
			Tag:       d.Tag,
			Ind1:      d.Ind1,
			Ind2:      d.Ind2,
			Subfields: d.Subfields,
		})
	}
	return rec
}
