package injection

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/tachi/internal/book"
)

const (
	cssID    = "tachi-injected-css"
	htmlID   = "tachi-injected-html"
	scriptID = "tachi-injected-js"
)

// Apply writes the CSS, HTML and JS of f into doc. Earlier injections with
// the same ids are replaced. The script is only embedded, never run.
func Apply(doc *goquery.Document, f book.Fragment) {
	if f.CSS != "" {
		injectCSS(doc, f.CSS)
	}
	if f.HTML != "" {
		injectHTML(doc, f.HTML)
	}
	if f.JS != "" {
		doc.Find("#" + scriptID).Remove()
		doc.Find("body").AppendHtml(`<script id="` + scriptID + `">(function() { ` + f.JS + ` })();</script>`)
	}
}

// Preview renders originalHTML with the CSS and HTML of f applied. Scripts
// are left out of previews.
func Preview(originalHTML string, f book.Fragment) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(originalHTML))
	if err != nil {
		return "", err
	}

	f.JS = ""
	Apply(doc, f)

	return doc.Html()
}

func injectCSS(doc *goquery.Document, css string) {
	doc.Find("#" + cssID).Remove()
	doc.Find("head").AppendHtml(`<style id="` + cssID + `">` + css + `</style>`)
}

func injectHTML(doc *goquery.Document, html string) {
	container := doc.Find("#" + htmlID)
	if container.Length() == 0 {
		doc.Find("body").AppendHtml(`<div id="` + htmlID + `"></div>`)
		container = doc.Find("#" + htmlID)
	}
	container.SetHtml(html)
}
