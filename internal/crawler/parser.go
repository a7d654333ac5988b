package crawler

import (
	"bytes"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/sitemapper/internal/model"
)

// ExtractLinks yields every followable link target in body, resolved against
// page (or against the document's <base href>, once seen) and normalized.
//
// Targets are the href attributes of <a>, <area>, and <link> elements whose
// rel is alternate, canonical, next or prev. References that fail
// normalization or use a non-http(s) scheme (mailto:, javascript:, tel:,
// data:) are skipped, as are fragment-only references.
//
// The sequence is lazy and finite. Each range over it re-tokenizes body from
// the start. Malformed markup never produces an error; the tokenizer simply
// yields whatever links it can recover.
//
// Design decision: We use the x/net/html tokenizer rather than building a
// DOM because link extraction only needs start tags, and a tokenizer lets the
// caller stop early without paying for the rest of the page.
func ExtractLinks(body []byte, page model.URL) iter.Seq[model.URL] {
	return func(yield func(model.URL) bool) {
		base := page
		baseSet := false

		z := html.NewTokenizer(bytes.NewReader(body))
		for {
			switch z.Next() {
			case html.ErrorToken:
				return
			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if !hasAttr {
					continue
				}
				tag := atom.Lookup(name)
				attrs := readAttrs(z)

				if tag == atom.Base {
					if !baseSet {
						if href := attrs["href"]; href != "" {
							if u, err := model.NormalizeURL(href, &page); err == nil {
								base = u
							}
						}
						baseSet = true
					}
					continue
				}

				href, ok := linkTarget(tag, attrs)
				if !ok {
					continue
				}
				u, ok := resolveLink(href, base)
				if !ok {
					continue
				}
				if !yield(u) {
					return
				}
			}
		}
	}
}

// readAttrs collects the attributes of the current tag.
// Keys are lowercased by the tokenizer; the first occurrence wins.
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if _, dup := attrs[k]; !dup {
			attrs[k] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

// followRels are the <link rel> values that point at crawlable pages.
var followRels = map[string]bool{
	"alternate": true,
	"canonical": true,
	"next":      true,
	"prev":      true,
}

// linkTarget returns the href of an element that carries a followable link.
func linkTarget(tag atom.Atom, attrs map[string]string) (string, bool) {
	href, ok := attrs["href"]
	if !ok {
		return "", false
	}
	switch tag {
	case atom.A, atom.Area:
		return href, true
	case atom.Link:
		for _, rel := range strings.Fields(strings.ToLower(attrs["rel"])) {
			if followRels[rel] {
				return href, true
			}
		}
	}
	return "", false
}

// skippedSchemes are reference prefixes that never denote a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// resolveLink normalizes href against base.
func resolveLink(href string, base model.URL) (model.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return model.URL{}, false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return model.URL{}, false
		}
	}
	u, err := model.NormalizeURL(href, &base)
	if err != nil {
		return model.URL{}, false
	}
	return u, true
}

// Parser extracts audit information from HTML content.
//
// Design decision: Parser builds a full DOM through html.Parse because it
// feeds the inspect view, where completeness matters more than speed. The
// crawl hot path uses ExtractLinks and ExtractTitle instead.
type Parser struct {
	// page is the URL of the document, used for resolving relative URLs.
	page model.URL

	// scope classifies links as internal or external.
	scope model.Scope
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the page title from the first <title> tag.
	Title string

	// Description is the content of <meta name="description">.
	Description string

	// Robots is the content of <meta name="robots">.
	Robots string

	// Canonical is the target of <link rel="canonical">, if any.
	Canonical string

	// InternalLinks are followable links inside the scope.
	InternalLinks []model.URL

	// ExternalLinks are followable links outside the scope.
	ExternalLinks []model.URL

	// MetaTags maps meta name (or property) to content.
	MetaTags map[string]string
}

// NewParser creates a parser for the document at page.
// Links on the page's host are internal.
func NewParser(page model.URL) *Parser {
	return &Parser{
		page:  page,
		scope: model.Scope{Host: page.Host()},
	}
}

// Parse parses HTML content and extracts audit information.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		InternalLinks: make([]model.URL, 0),
		ExternalLinks: make([]model.URL, 0),
		MetaTags:      make(map[string]string),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	seen := make(map[string]bool)
	for u := range ExtractLinks(raw, p.page) {
		if seen[u.Key()] {
			continue
		}
		seen[u.Key()] = true
		if p.scope.Contains(u) {
			result.InternalLinks = append(result.InternalLinks, u)
		} else {
			result.ExternalLinks = append(result.ExternalLinks, u)
		}
	}

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.DataAtom {
	case atom.Title:
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case atom.Meta:
		name := strings.ToLower(getAttr(n, "name"))
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name == "" || content == "" {
			return
		}
		result.MetaTags[name] = content
		switch name {
		case "description":
			result.Description = content
		case "robots":
			result.Robots = content
		}

	case atom.Link:
		for _, rel := range strings.Fields(strings.ToLower(getAttr(n, "rel"))) {
			if rel == "canonical" && result.Canonical == "" {
				if u, ok := resolveLink(getAttr(n, "href"), p.page); ok {
					result.Canonical = u.String()
				}
			}
		}
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// ExtractTitle returns the trimmed text of the first <title> element, or ""
// if the document has none.
func ExtractTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Title {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				b.Write(z.Text())
			}
		case html.EndTagToken:
			if inTitle {
				return strings.Join(strings.Fields(b.String()), " ")
			}
		}
	}
}
