// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

const sampleOPACPage = `<!DOCTYPE html>
<html><head><title>Katalog</title><style>.result{}</style></head>
<body>
  <ul>
    <li class="result hit">
      <h3><a href="/record/101">Yapay zeka / Ahmet Yılmaz</a></h3>
      <div>Yayınevi: Bilim Yayınları</div>
      <div>ISBN 9789750719387</div>
      <div>2019</div>
      <script>track(101)</script>
    </li>
    <li class="result">
      <p>Makine öğrenmesi</p>
      <p>by Ayşe Demir</p>
    </li>
    <li class="ad">Sponsored</li>
  </ul>
</body></html>`

func newOPACServer(t *testing.T, robots string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(robots))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yapay zeka", r.URL.Query().Get("ara"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(sampleOPACPage))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestOPACSearch(t *testing.T) {
	ts := newOPACServer(t, "User-agent: *\nDisallow: /admin\n")

	o := &OPAC{
		Client:     ts.Client(),
		Endpoint:   ts.URL + "/search",
		QueryParam: "ara",
		Robots:     httputil.NewRobotsChecker(ts.Client(), "catalog-aggregator/0.1", time.Minute),
	}
	recs, err := o.Search(context.Background(), types.Query{Text: "yapay zeka"}, Options{UserAgent: "catalog-aggregator/0.1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0].(types.ScrapedRecord)
	assert.Equal(t, "Yapay zeka / Ahmet Yılmaz\nYayınevi: Bilim Yayınları\nISBN 9789750719387\n2019", first.Text)
	assert.Equal(t, ts.URL+"/record/101", first.Link)

	second := recs[1].(types.ScrapedRecord)
	assert.Equal(t, "Makine öğrenmesi\nby Ayşe Demir", second.Text)
	assert.Empty(t, second.Link)
}

func TestOPACRobotsDisallow(t *testing.T) {
	ts := newOPACServer(t, "User-agent: *\nDisallow: /search\n")

	o := &OPAC{
		Client:   ts.Client(),
		Endpoint: ts.URL + "/search",
		Robots:   httputil.NewRobotsChecker(ts.Client(), "catalog-aggregator/0.1", time.Minute),
	}
	_, err := o.Search(context.Background(), types.Query{Text: "x"}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowed))
}

func TestOPACMaxResults(t *testing.T) {
	ts := newOPACServer(t, "")
	o := &OPAC{Client: ts.Client(), Endpoint: ts.URL + "/search", QueryParam: "ara"}
	recs, err := o.Search(context.Background(), types.Query{Text: "yapay zeka"}, Options{MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOPACInvalidEndpoint(t *testing.T) {
	o := &OPAC{Endpoint: "not a url"}
	_, err := o.Search(context.Background(), types.Query{Text: "x"}, Options{})
	assert.Error(t, err)
}

func TestTextBlocks(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div class="r">Title<br>Second   line<span> inline</span><p></p></div>`))
	require.NoError(t, err)
	items := findByClass(doc, "r")
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Title", "Second line inline"}, textBlocks(items[0]))
}
