package loader

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/injection"
	"github.com/brogergvhs/tachi/internal/ui"
)

type fakeSource struct {
	body    string
	err     error
	fetched []string
}

func (f *fakeSource) Fetch(_ context.Context, target string) (string, error) {
	f.fetched = append(f.fetched, target)
	return f.body, f.err
}

func (f *fakeSource) FrameURL(bookID, target string) string {
	if bookID != "" {
		return "/frame?book=" + bookID + "&url=" + url.QueryEscape(target)
	}
	return "/proxy?url=" + url.QueryEscape(target)
}

func newLoader(t *testing.T, src Source) *Loader {
	log := ui.NewLoggerFrom(zaptest.NewLogger(t))
	return New(src, injection.NewResolver(log), log)
}

const chapterHTML = `<html><head><title>Chapter 3</title></head><body>
<a class="next" href="/chapter/4">next</a>
<div class="pages">
  <img class="pg" data-src="/img/1.jpg">
  <img class="pg" data-lazy-src="img/2.jpg">
  <img class="pg" data-src="https://cdn.example.net/3.jpg">
  <img class="logo" src="/logo.png">
</div>
</body></html>`

func readerBook() *book.Book {
	return &book.Book{
		ID:   "b1",
		Name: "Comics",
		BookReader: book.ReaderConfig{
			Enabled:          true,
			Mode:             book.ModeDual,
			ImageSelector:    "img.pg",
			NextPageSelector: "a.next",
		},
	}
}

func TestLoad_ExtractsLazyImagesInOrder(t *testing.T) {
	src := &fakeSource{body: chapterHTML}
	l := newLoader(t, src)

	c, err := l.Load(context.Background(), readerBook(), "https://example.com/chapter/3")
	require.NoError(t, err)

	assert.True(t, c.Extracted)
	assert.Equal(t, book.ModeDual, c.Mode)
	assert.Equal(t, "Chapter 3", c.Title)
	assert.Equal(t, []book.Page{
		{Kind: book.PageImage, Locator: "https://example.com/img/1.jpg"},
		{Kind: book.PageImage, Locator: "https://example.com/chapter/img/2.jpg"},
		{Kind: book.PageImage, Locator: "https://cdn.example.net/3.jpg"},
	}, c.Pages)
	assert.Equal(t, "https://example.com/chapter/4", c.Next)
	assert.Empty(t, c.Prev)
	assert.Equal(t, []string{"https://example.com/chapter/3"}, src.fetched)
}

func TestLoad_FrameModeWhenReaderDisabled(t *testing.T) {
	src := &fakeSource{}
	l := newLoader(t, src)

	b := &book.Book{ID: "b2", Name: "Site"}
	c, err := l.Load(context.Background(), b, "https://example.com/a?b=c")
	require.NoError(t, err)

	assert.False(t, c.Extracted)
	assert.Equal(t, book.ModeSingle, c.Mode)
	require.Len(t, c.Pages, 1)
	assert.Equal(t, book.PageFrame, c.Pages[0].Kind)
	assert.Equal(t, "/frame?book=b2&url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc", c.Pages[0].Locator)
	assert.Empty(t, src.fetched, "frame mode must not fetch")
}

func TestLoad_FetchFailureDegradesToEmpty(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := ui.NewLoggerFrom(zap.New(core))
	l := New(&fakeSource{err: errors.New("boom")}, injection.NewResolver(log), log)

	c, err := l.Load(context.Background(), readerBook(), "https://example.com/chapter/3")
	require.Error(t, err)
	require.NotNil(t, c)

	assert.NotNil(t, c.Pages)
	assert.Empty(t, c.Pages)
	assert.Equal(t, book.ModeDual, c.Mode)
	assert.Equal(t, 1, logs.FilterMessageSnippet("fetching").Len())
}

func TestLoad_ZeroMatches(t *testing.T) {
	l := newLoader(t, &fakeSource{body: `<html><body><p>no pictures</p></body></html>`})

	c, err := l.Load(context.Background(), readerBook(), "https://example.com/x")
	require.NoError(t, err)
	assert.NotNil(t, c.Pages)
	assert.Empty(t, c.Pages)
}

func TestLoad_TransformRunsBeforeSelection(t *testing.T) {
	body := `<html><body>
<img class="pg" data-original="/a.jpg">
<img class="pg" data-original="/b.jpg">
</body></html>`
	l := newLoader(t, &fakeSource{body: body})

	b := readerBook()
	b.Injections.Default.Transform = `{op: copy-attr, select: img.pg, from: data-original, to: src}`

	c, err := l.Load(context.Background(), b, "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, []book.Page{
		{Kind: book.PageImage, Locator: "https://example.com/a.jpg"},
		{Kind: book.PageImage, Locator: "https://example.com/b.jpg"},
	}, c.Pages)
}

func TestLoad_BrokenTransformStillExtracts(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := ui.NewLoggerFrom(zap.New(core))
	l := New(&fakeSource{body: chapterHTML}, injection.NewResolver(log), log)

	b := readerBook()
	b.Injections.Default.CSS = "img{width:100%}"
	b.Injections.Default.Transform = `document.querySelectorAll("img")`

	c, err := l.Load(context.Background(), b, "https://example.com/chapter/3")
	require.NoError(t, err)
	assert.Len(t, c.Pages, 3)
	assert.Equal(t, "img{width:100%}", c.Injection.CSS)
	assert.Equal(t, 1, logs.FilterMessageSnippet("transform skipped").Len())
}

func TestResolveReaderConfig(t *testing.T) {
	l := newLoader(t, &fakeSource{})

	overrideRC := &book.ReaderConfig{Enabled: true, Mode: book.ModeSingle, ImageSelector: ".reader img"}
	disabledRC := &book.ReaderConfig{Enabled: false, ImageSelector: "nope"}

	b := &book.Book{
		BookReader: book.ReaderConfig{Enabled: true, ImageSelector: "img"},
		Injections: book.Injections{Subdomains: []book.Override{
			{Pattern: "/read/", BookReader: overrideRC},
			{Pattern: "/off/", BookReader: disabledRC},
		}},
	}

	assert.Same(t, overrideRC, l.ResolveReaderConfig(b, "https://example.com/read/1"))
	assert.Same(t, &b.BookReader, l.ResolveReaderConfig(b, "https://example.com/off/1"))
	assert.Same(t, &b.BookReader, l.ResolveReaderConfig(b, "https://example.com/other"))

	b.BookReader.Enabled = false
	assert.Nil(t, l.ResolveReaderConfig(b, "https://example.com/other"))
	assert.Nil(t, l.ResolveReaderConfig(nil, "https://example.com/other"))
}

func TestResolveReaderConfig_URLPattern(t *testing.T) {
	l := newLoader(t, &fakeSource{})
	b := &book.Book{BookReader: book.ReaderConfig{Enabled: true, URLPattern: `/chapter-\d+`}}

	assert.NotNil(t, l.ResolveReaderConfig(b, "https://example.com/chapter-9"))
	assert.Nil(t, l.ResolveReaderConfig(b, "https://example.com/about"))
}

func TestResolveReaderConfig_HostPattern(t *testing.T) {
	l := newLoader(t, &fakeSource{})

	rc := &book.ReaderConfig{Enabled: true, ImageSelector: ".page img"}
	b := &book.Book{
		Injections: book.Injections{Subdomains: []book.Override{
			{Pattern: `reader\.example\.com`, BookReader: rc},
		}},
	}

	assert.Same(t, rc, l.ResolveReaderConfig(b, "https://reader.example.com/chapter/3"))
	assert.Same(t, rc, l.ResolveReaderConfig(b, "https://READER.example.com/"))
	assert.Nil(t, l.ResolveReaderConfig(b, "https://www.example.com/chapter/3"))
}

func TestResolveReaderConfig_URLPatternSeesHost(t *testing.T) {
	l := newLoader(t, &fakeSource{})
	b := &book.Book{BookReader: book.ReaderConfig{Enabled: true, URLPattern: `^https://cdn\.example\.com/`}}

	assert.NotNil(t, l.ResolveReaderConfig(b, "https://cdn.example.com/ch/1"))
	assert.Nil(t, l.ResolveReaderConfig(b, "https://example.com/ch/1"))
}
