// Package injection decides which site customization applies to a URL and
// writes the chosen fragment into an HTML document.
package injection

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/brogergvhs/tachi/internal/book"
)

// OverrideMarker separates the default fragment from an override when both
// are present. It is a comment in both CSS and JavaScript.
const OverrideMarker = "\n/* --- Subdomain Override --- */\n"

type Logger interface {
	Debugf(string, ...any)
	Errorf(string, ...any)
}

type Resolver struct {
	log Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func NewResolver(log Logger) *Resolver {
	return &Resolver{
		log:   log,
		cache: map[string]*regexp.Regexp{},
	}
}

// MergeFragment concatenates base and override around OverrideMarker. When
// only one side is set it is returned verbatim.
func MergeFragment(base, override string) string {
	switch {
	case base == "" && override == "":
		return ""
	case base == "":
		return override
	case override == "":
		return base
	}

	return base + OverrideMarker + override
}

func mergeFragments(base, override book.Fragment) book.Fragment {
	return book.Fragment{
		CSS:       MergeFragment(base.CSS, override.CSS),
		HTML:      MergeFragment(base.HTML, override.HTML),
		JS:        MergeFragment(base.JS, override.JS),
		Transform: MergeFragment(base.Transform, override.Transform),
	}
}

// MatchingOverride returns the first override whose pattern matches the
// path and query of rawURL, or nil.
func (r *Resolver) MatchingOverride(rawURL string, overrides []book.Override) *book.Override {
	target := pathAndQuery(rawURL)

	for i := range overrides {
		if r.matches(target, overrides[i]) {
			r.log.Debugf("injection: %q matched override #%d (%q)", target, i, overrides[i].Pattern)
			return &overrides[i]
		}
	}

	return nil
}

// Resolve returns the fragment that applies to rawURL: the default merged
// with the first matching override, or the default alone.
func (r *Resolver) Resolve(b *book.Book, rawURL string) book.Fragment {
	if b == nil {
		return book.Fragment{}
	}

	o := r.MatchingOverride(rawURL, b.Injections.Subdomains)
	if o == nil {
		return b.Injections.Default
	}

	return mergeFragments(b.Injections.Default, o.Fragment)
}

// Matches reports whether rawURL is selected by pattern using the same
// rules as override matching.
func (r *Resolver) Matches(rawURL, pattern string) bool {
	return r.matches(pathAndQuery(rawURL), book.Override{Pattern: pattern})
}

// MatchingOverrideURL returns the first override whose pattern matches the
// full rawURL, host included, or nil. The pattern is a single
// case-insensitive expression. Reader configs are chosen this way so an
// override can target a subdomain.
func (r *Resolver) MatchingOverrideURL(rawURL string, overrides []book.Override) *book.Override {
	for i := range overrides {
		if r.matchesURL(rawURL, overrides[i]) {
			r.log.Debugf("injection: %q matched reader override #%d (%q)", rawURL, i, overrides[i].Pattern)
			return &overrides[i]
		}
	}

	return nil
}

// MatchesURL is Matches against the full URL.
func (r *Resolver) MatchesURL(rawURL, pattern string) bool {
	return r.matchesURL(rawURL, book.Override{Pattern: pattern})
}

func (r *Resolver) matchesURL(rawURL string, o book.Override) bool {
	p := strings.TrimSpace(o.Pattern)
	if p == "" {
		return false
	}

	if !o.IsRegex() {
		return strings.Contains(rawURL, o.Pattern)
	}

	re, err := r.compile(p)
	if err != nil {
		r.log.Errorf("injection: invalid pattern %q: %v", o.Pattern, err)
		return false
	}

	return re.MatchString(rawURL)
}

func (r *Resolver) matches(target string, o book.Override) bool {
	if strings.TrimSpace(o.Pattern) == "" {
		return false
	}

	if !o.IsRegex() {
		return strings.Contains(target, o.Pattern)
	}

	pieces := splitPattern(o.Pattern)
	compiled := make([]*regexp.Regexp, 0, len(pieces))
	for _, p := range pieces {
		re, err := r.compile(p)
		if err != nil {
			r.log.Errorf("injection: invalid pattern %q: %v", o.Pattern, err)
			return false
		}
		compiled = append(compiled, re)
	}

	for _, re := range compiled {
		if re.MatchString(target) {
			return true
		}
	}

	return false
}

func (r *Resolver) compile(p string) (*regexp.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.cache[p]; ok {
		return re, nil
	}

	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return nil, err
	}
	r.cache[p] = re

	return re, nil
}

func splitPattern(pattern string) []string {
	var out []string
	for p := range strings.SplitSeq(pattern, "|") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func pathAndQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}

	return p
}
