// Package book holds the data model shared by the loader, the injection
// resolver and the reader: books, their injection fragments, reader
// configuration and the page resources produced from a loaded document.
package book

import "time"

type DisplayMode string

const (
	ModeDual   DisplayMode = "two-page"
	ModeSingle DisplayMode = "single"
)

// Step returns how many pages a single flip moves in this mode.
func (m DisplayMode) Step() int {
	if m == ModeDual {
		return 2
	}
	return 1
}

const DefaultImageSelector = "img"

// Fragment is one set of site customizations. Every field is optional.
//
// CSS, HTML and JS are delivered to the client together with framed
// content. Transform is a declarative program run against the fetched
// document before image selection (see package transform).
type Fragment struct {
	CSS       string `json:"css"`
	HTML      string `json:"html"`
	JS        string `json:"js"`
	Transform string `json:"transform,omitempty"`
}

func (f Fragment) IsEmpty() bool {
	return f.CSS == "" && f.HTML == "" && f.JS == "" && f.Transform == ""
}

type Override struct {
	// Pattern is a case-insensitive regular expression. For fragments it is
	// split on "|" and each piece is tried against the URL path and query;
	// empty pieces are dropped, so "foo|" matches like "foo" and not
	// everything. For the reader config the whole pattern is tried against
	// the full URL, host included.
	Pattern string `json:"pattern"`
	// Regex defaults to true. When explicitly false the pattern is matched
	// as a plain substring.
	Regex *bool `json:"regex,omitempty"`
	Fragment
	BookReader *ReaderConfig `json:"bookReader,omitempty"`
}

func (o Override) IsRegex() bool {
	return o.Regex == nil || *o.Regex
}

type Injections struct {
	Default    Fragment   `json:"default"`
	Subdomains []Override `json:"subdomains"`
}

type ReaderConfig struct {
	Enabled          bool        `json:"enabled"`
	Mode             DisplayMode `json:"mode,omitempty" validate:"omitempty,oneof=two-page single"`
	ImageSelector    string      `json:"imageSelector,omitempty"`
	NextPageSelector string      `json:"nextPageSelector,omitempty"`
	PrevPageSelector string      `json:"prevPageSelector,omitempty"`
	URLPattern       string      `json:"urlPattern,omitempty"`
}

// Selector returns the configured image selector or the default one.
func (rc ReaderConfig) Selector() string {
	if rc.ImageSelector == "" {
		return DefaultImageSelector
	}
	return rc.ImageSelector
}

// DisplayMode returns the configured mode, falling back to two-page.
func (rc ReaderConfig) DisplayMode() DisplayMode {
	if rc.Mode == "" {
		return ModeDual
	}
	return rc.Mode
}

type Book struct {
	ID         string       `json:"id,omitempty"`
	Name       string       `json:"name"`
	URL        string       `json:"url" validate:"omitempty,url"`
	Injections Injections   `json:"injections"`
	BookReader ReaderConfig `json:"bookReader"`

	// Set for books discovered in a GitHub repository.
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`

	AddedAt   *time.Time `json:"addedAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Template returns the descriptor a freshly created book starts from.
func Template() *Book {
	return &Book{
		Name: "New Site",
		Injections: Injections{
			Subdomains: []Override{},
		},
		BookReader: ReaderConfig{
			Enabled:       false,
			Mode:          ModeDual,
			ImageSelector: DefaultImageSelector,
		},
	}
}
