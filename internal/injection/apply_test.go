package injection

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/tachi/internal/book"
)

func parseHTML(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestApply(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>x</title></head><body><p>page</p></body></html>`)

	Apply(doc, book.Fragment{CSS: "p{color:red}", HTML: "<b>note</b>", JS: "window.x = 1;"})

	assert.Equal(t, "p{color:red}", doc.Find("head style#tachi-injected-css").Text())
	assert.Equal(t, "note", doc.Find("body #tachi-injected-html b").Text())
	script := doc.Find("body script#tachi-injected-js").Text()
	assert.Equal(t, "(function() { window.x = 1; })();", script)
}

func TestApply_ReplacesPreviousInjection(t *testing.T) {
	doc := parseHTML(t, `<html><head></head><body></body></html>`)

	Apply(doc, book.Fragment{CSS: "a{}", HTML: "one", JS: "1"})
	Apply(doc, book.Fragment{CSS: "b{}", HTML: "two", JS: "2"})

	assert.Equal(t, 1, doc.Find("#tachi-injected-css").Length())
	assert.Equal(t, "b{}", doc.Find("#tachi-injected-css").Text())
	assert.Equal(t, 1, doc.Find("#tachi-injected-html").Length())
	assert.Equal(t, "two", doc.Find("#tachi-injected-html").Text())
	assert.Equal(t, 1, doc.Find("#tachi-injected-js").Length())
}

func TestApply_EmptyFragment(t *testing.T) {
	doc := parseHTML(t, `<html><head></head><body><p>x</p></body></html>`)
	before, err := doc.Html()
	require.NoError(t, err)

	Apply(doc, book.Fragment{})

	after, err := doc.Html()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPreview_OmitsScript(t *testing.T) {
	out, err := Preview(`<html><body><p>hello</p></body></html>`, book.Fragment{CSS: "p{}", HTML: "<i>hi</i>", JS: "alert(1)"})
	require.NoError(t, err)

	assert.Contains(t, out, `<style id="tachi-injected-css">p{}</style>`)
	assert.Contains(t, out, "<i>hi</i>")
	assert.NotContains(t, out, "alert(1)")
}
