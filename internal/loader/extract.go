package loader

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/tachi/internal/book"
)

// sourceAttrs is the lookup order for an element's resource locator: the
// primary source first, then the lazy-load fallbacks.
var sourceAttrs = []string{"src", "data-src", "data-lazy-src"}

// ExtractPages selects elements matching selector in document order and
// returns one image page per element that carries a locator.
func ExtractPages(doc *goquery.Document, docURL, selector string) []book.Page {
	pages := []book.Page{}

	doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
		loc := locatorOf(el)
		if loc == "" {
			return
		}
		pages = append(pages, book.Page{Kind: book.PageImage, Locator: Resolve(docURL, loc)})
	})

	return pages
}

func locatorOf(el *goquery.Selection) string {
	for _, k := range sourceAttrs {
		if v, ok := el.Attr(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return ""
}

// Resolve makes a locator absolute. Paths starting with a single "/" are
// joined to the document origin, absolute URLs pass through and anything
// else is resolved against the document URL.
func Resolve(docURL, loc string) string {
	base, err := url.Parse(docURL)
	if err != nil {
		return loc
	}

	if strings.HasPrefix(loc, "/") && !strings.HasPrefix(loc, "//") {
		return base.Scheme + "://" + base.Host + loc
	}

	u, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	if u.IsAbs() {
		return loc
	}

	return base.ResolveReference(u).String()
}
