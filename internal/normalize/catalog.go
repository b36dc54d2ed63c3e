// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
	"github.com/xeipuuv/gojsonschema"
)

// catalogDocumentSchema is the minimum a JSON catalog document must satisfy
// before field mapping: an object that names a title under one of the
// accepted keys, with string or array values.
const catalogDocumentSchema = `{
  "type": "object",
  "definitions": {
    "text": {"type": ["string", "array"], "minLength": 1, "minItems": 1}
  },
  "anyOf": [
    {"required": ["title"], "properties": {"title": {"$ref": "#/definitions/text"}}},
    {"required": ["name"], "properties": {"name": {"$ref": "#/definitions/text"}}},
    {"required": ["dc:title"], "properties": {"dc:title": {"$ref": "#/definitions/text"}}},
    {"required": ["titel"], "properties": {"titel": {"$ref": "#/definitions/text"}}},
    {"required": ["titulo"], "properties": {"titulo": {"$ref": "#/definitions/text"}}},
    {"required": ["baslik"], "properties": {"baslik": {"$ref": "#/definitions/text"}}}
  ],
  "properties": {
    "isbn": {"type": ["string", "array", "number", "null"]},
    "year": {"type": ["string", "number", "null"]}
  }
}`

// Accepted keys per canonical field, in priority order. Lookup is
// case-insensitive; "a.b" reaches into a nested object.
var catalogAliases = map[string][]string{
	"id":          {"id", "_id", "record_id", "recordid", "control_number"},
	"title":       {"title", "name", "dc:title", "titel", "titulo", "baslik"},
	"subtitle":    {"subtitle", "remainder_of_title"},
	"authors":     {"authors", "author", "creators", "creator", "dc:creator", "contributors", "author_name", "yazar"},
	"isbn":        {"isbn", "isbn13", "isbn_13", "isbn10", "isbn_10", "isbns", "identifiers.isbn"},
	"issn":        {"issn", "identifiers.issn"},
	"year":        {"year", "publication_year", "publicationyear", "first_publish_year", "date", "issued", "published", "pub_date", "yil"},
	"publisher":   {"publisher", "publishers", "dc:publisher", "yayinevi"},
	"format":      {"format", "type", "material_type", "materialtype", "dc:type"},
	"subjects":    {"subjects", "subject", "keywords", "topics", "dc:subject", "konu"},
	"description": {"description", "abstract", "summary", "notes", "dc:description"},
	"doi":         {"doi", "identifiers.doi"},
	"language":    {"language", "lang", "dc:language"},
	"url":         {"url", "link", "uri", "permalink"},
	"call_number": {"call_number", "callnumber", "shelfmark", "classification", "yer_numarasi"},
	"institution": {"institution", "library", "holding_library", "holdinglibrary"},
}

// catalogStrategy maps loosely keyed JSON documents. Confidence is high
// when the document carries an explicit ISBN key, medium otherwise.
type catalogStrategy struct {
	schema *gojsonschema.Schema
}

func newCatalogStrategy() catalogStrategy {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(catalogDocumentSchema))
	if err != nil {
		panic(fmt.Sprintf("normalize: invalid catalog schema: %v", err))
	}
	return catalogStrategy{schema: schema}
}

func (c catalogStrategy) normalize(raw types.RawRecord, src types.SourceDescriptor) (types.BibliographicRecord, error) {
	doc, ok := raw.(types.CatalogDocument)
	if !ok {
		return types.BibliographicRecord{}, fmt.Errorf("expected catalog document, got %T", raw)
	}
	if err := c.validate(doc); err != nil {
		return types.BibliographicRecord{}, err
	}

	d := foldKeys(doc)
	title := CleanTitle(strings.Join(d.strings("title"), " "))
	if sub := CleanTitle(d.first("subtitle")); sub != "" && title != "" {
		title = title + ": " + sub
	}
	if title == "" {
		return types.BibliographicRecord{}, errors.New("catalog document has an empty title")
	}

	isbns := d.strings("isbn")
	confidence := types.ConfidenceMedium
	if len(isbns) > 0 {
		confidence = types.ConfidenceHigh
	}

	year := types.YearUnknown
	for _, y := range d.strings("year") {
		if year = ParseYear(y); year.Known() {
			break
		}
	}

	format := FormatFromType(d.first("format"))
	if format == "" {
		format = types.FormatBook
	}

	return types.BibliographicRecord{
		SourceRecordID: d.first("id"),
		Title:          title,
		Authors:        cleanList(d.strings("authors"), trimPunct),
		ISBN:           firstISBN(isbns),
		ISSN:           CleanText(d.first("issn")),
		Year:           year,
		Publisher:      CleanText(d.first("publisher")),
		Format:         format,
		Subjects:       nilIfEmpty(cleanList(d.strings("subjects"), CleanText)),
		Description:    CleanText(d.first("description")),
		DOI:            cleanDOI(d.first("doi")),
		Language:       CleanText(d.first("language")),
		URL:            strings.TrimSpace(d.first("url")),
		RawConfidence:  confidence,
		LibraryInfo:    libraryInfo(src, CleanText(d.first("institution")), CleanText(d.first("call_number"))),
	}, nil
}

func (c catalogStrategy) validate(doc types.CatalogDocument) error {
	res, err := c.schema.Validate(gojsonschema.NewGoLoader(map[string]any(lowerKeys(doc))))
	if err != nil {
		return fmt.Errorf("validating catalog document: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("catalog document rejected: %s", strings.Join(msgs, "; "))
}

func lowerKeys(doc types.CatalogDocument) types.CatalogDocument {
	out := make(types.CatalogDocument, len(doc))
	for k, v := range doc {
		out[strings.ToLower(k)] = v
	}
	return out
}

type foldedDoc map[string]any

func foldKeys(doc types.CatalogDocument) foldedDoc {
	return foldedDoc(lowerKeys(doc))
}

func (d foldedDoc) lookup(alias string) (any, bool) {
	head, rest, nested := strings.Cut(alias, ".")
	v, ok := d[head]
	if !ok || !nested {
		return v, ok
	}
	inner, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return foldKeys(inner).lookup(rest)
}

// strings returns the values of the first alias of field that is present
// and non-empty.
func (d foldedDoc) strings(field string) []string {
	for _, alias := range catalogAliases[field] {
		v, ok := d.lookup(alias)
		if !ok {
			continue
		}
		if vals := flatten(v); len(vals) > 0 {
			return vals
		}
	}
	return nil
}

func (d foldedDoc) first(field string) string {
	if vals := d.strings(field); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// flatten turns scalars, lists and {"name": ...} objects into strings.
func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	case []string:
		return nonEmpty(t...)
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, flatten(e)...)
		}
		return out
	case map[string]any:
		for _, k := range []string{"name", "value", "text", "label", "$"} {
			if inner, ok := t[k]; ok {
				return flatten(inner)
			}
		}
		return nil
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(t)}
	case int64:
		return []string{strconv.FormatInt(t, 10)}
	case json.Number:
		return []string{t.String()}
	case []byte:
		return flatten(string(t))
	default:
		return []string{fmt.Sprint(t)}
	}
}
