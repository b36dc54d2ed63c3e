// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/catalog-aggregator/internal/httputil"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// OPAC scrapes the HTML results page of a library catalog that offers no
// machine-readable interface. Each element whose class list contains
// ItemClass becomes one scraped record of newline-joined text blocks.
type OPAC struct {
	Client   *http.Client
	Endpoint string

	// QueryParam carries the query text (default "q").
	QueryParam string

	// ItemClass marks one result on the page (default "result").
	ItemClass string

	// Robots, when set, is consulted before every fetch.
	Robots *httputil.RobotsChecker
}

// ErrDisallowed is returned when robots.txt forbids the results page.
var ErrDisallowed = errors.New("fetch disallowed by robots.txt")

// Search fetches and scrapes one results page.
func (o *OPAC) Search(ctx context.Context, query types.Query, opts Options) ([]types.RawRecord, error) {
	text := query.Terms()
	if text == "" {
		return nil, errors.New("empty OPAC query")
	}
	base, err := url.Parse(o.Endpoint)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid OPAC endpoint %q", o.Endpoint)
	}
	params := base.Query()
	params.Set(orDefault(o.QueryParam, "q"), text)
	base.RawQuery = params.Encode()
	target := base.String()

	if o.Robots != nil {
		ok, err := o.Robots.Allowed(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !ok {
			return nil, ErrDisallowed
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setUserAgent(req, opts)
	req.Header.Set("Accept", "text/html")

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(o.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("OPAC request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("OPAC: %w", err)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing OPAC page: %w", err)
	}

	items := findByClass(doc, orDefault(o.ItemClass, "result"))
	n := limit(opts, 0)
	if len(items) > n {
		items = items[:n]
	}
	records := make([]types.RawRecord, 0, len(items))
	for _, item := range items {
		rec := types.ScrapedRecord{Text: strings.Join(textBlocks(item), "\n")}
		if href := firstHref(item); href != "" {
			if u, err := base.Parse(href); err == nil {
				rec.Link = u.String()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// findByClass returns matching elements in document order, not descending
// into a match.
func findByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "dd": true,
}

// textBlocks flattens an element into lines, breaking at block elements.
func textBlocks(n *html.Node) []string {
	var lines []string
	var cur strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(n)
	flush()
	return lines
}

func firstHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, a := range n.Attr {
			if a.Key == "href" && a.Val != "" {
				return a.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := firstHref(c); h != "" {
			return h
		}
	}
	return ""
}
