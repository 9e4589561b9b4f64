// Package loader turns a book and a target URL into the ordered page
// sequence shown by the reader.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/injection"
	"github.com/brogergvhs/tachi/internal/transform"
)

// Source fetches documents through the content proxy.
type Source interface {
	Fetch(ctx context.Context, target string) (string, error)
	FrameURL(bookID, target string) string
}

type Logger interface {
	Debugf(string, ...any)
	Errorf(string, ...any)
}

// Content is the result of one load. Pages is never nil.
type Content struct {
	URL       string
	Title     string
	Pages     []book.Page
	Mode      book.DisplayMode
	Extracted bool
	Reader    *book.ReaderConfig
	Injection book.Fragment

	// Chapter navigation, resolved from the reader config selectors.
	Next string
	Prev string
}

type Loader struct {
	src      Source
	resolver *injection.Resolver
	log      Logger
}

func New(src Source, resolver *injection.Resolver, log Logger) *Loader {
	return &Loader{
		src:      src,
		resolver: resolver,
		log:      log,
	}
}

// ResolveReaderConfig picks the reader configuration for target: an enabled
// config on the first override matching the full URL wins over the book's
// own one. Nil means whole-page frame mode.
func (l *Loader) ResolveReaderConfig(b *book.Book, target string) *book.ReaderConfig {
	if b == nil {
		return nil
	}

	if o := l.resolver.MatchingOverrideURL(target, b.Injections.Subdomains); o != nil {
		if rc := o.BookReader; rc != nil && rc.Enabled && l.applies(rc, target) {
			return rc
		}
	}

	if b.BookReader.Enabled && l.applies(&b.BookReader, target) {
		return &b.BookReader
	}

	return nil
}

func (l *Loader) applies(rc *book.ReaderConfig, target string) bool {
	return rc.URLPattern == "" || l.resolver.MatchesURL(target, rc.URLPattern)
}

// Load fetches and extracts target. A fetch failure is logged and returned
// together with an empty, usable Content.
func (l *Loader) Load(ctx context.Context, b *book.Book, target string) (*Content, error) {
	c := &Content{
		URL:       target,
		Pages:     []book.Page{},
		Injection: l.resolver.Resolve(b, target),
	}

	rc := l.ResolveReaderConfig(b, target)
	if rc == nil {
		bookID := ""
		if b != nil {
			bookID = b.ID
		}
		c.Pages = append(c.Pages, book.Page{Kind: book.PageFrame, Locator: l.src.FrameURL(bookID, target)})
		c.Mode = book.ModeSingle
		l.log.Debugf("loader: %s opened as a single frame", target)
		return c, nil
	}

	c.Extracted = true
	c.Reader = rc
	c.Mode = rc.DisplayMode()

	body, err := l.src.Fetch(ctx, target)
	if err != nil {
		l.log.Errorf("loader: fetching %s failed: %v", target, err)
		return c, fmt.Errorf("fetch %s: %w", target, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		l.log.Errorf("loader: parsing %s failed: %v", target, err)
		return c, fmt.Errorf("parse %s: %w", target, err)
	}

	l.customize(doc, c.Injection.Transform)

	c.Title = strings.TrimSpace(doc.Find("title").First().Text())
	c.Pages = ExtractPages(doc, target, rc.Selector())
	c.Next = linkFor(doc, target, rc.NextPageSelector)
	c.Prev = linkFor(doc, target, rc.PrevPageSelector)

	l.log.Debugf("loader: %s -> %d pages (selector %q)", target, len(c.Pages), rc.Selector())
	return c, nil
}

// customize runs the pre-extraction program. It has to happen before
// selection because it may reveal lazily loaded sources.
func (l *Loader) customize(doc *goquery.Document, program string) {
	if strings.TrimSpace(program) == "" {
		return
	}

	prog, err := transform.Parse(program)
	if err != nil {
		l.log.Errorf("loader: transform skipped: %v", err)
		return
	}

	n := prog.Apply(doc)
	l.log.Debugf("loader: transform touched %d elements", n)
}

func linkFor(doc *goquery.Document, docURL, selector string) string {
	if selector == "" {
		return ""
	}

	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}

	return Resolve(docURL, strings.TrimSpace(href))
}
