// Package reader holds the reading session state: which pages are visible,
// how flips move between them, and the timer queue that settles flips.
package reader

import (
	"fmt"

	"github.com/brogergvhs/tachi/internal/book"
)

// Pager tracks the current index over an immutable page sequence.
//
// The index always stays inside [0, total) when total > 0, and in dual mode
// it is always even so the current page is the left one of the spread.
type Pager struct {
	pages []book.Page
	index int
	mode  book.DisplayMode
}

func NewPager(pages []book.Page, mode book.DisplayMode) *Pager {
	if pages == nil {
		pages = []book.Page{}
	}
	if mode != book.ModeDual {
		mode = book.ModeSingle
	}

	return &Pager{pages: pages, mode: mode}
}

func (p *Pager) Index() int             { return p.index }
func (p *Pager) Total() int             { return len(p.pages) }
func (p *Pager) Mode() book.DisplayMode { return p.mode }
func (p *Pager) Step() int              { return p.mode.Step() }

// ContentAt returns the page at i, or a blank page when i is out of range.
func (p *Pager) ContentAt(i int) book.Page {
	if i < 0 || i >= len(p.pages) {
		return book.Blank()
	}

	return p.pages[i]
}

// Visible returns the pages on screen: the spread in dual mode, the current
// page in single mode.
func (p *Pager) Visible() []book.Page {
	if p.mode == book.ModeDual {
		return []book.Page{p.ContentAt(p.index), p.ContentAt(p.index + 1)}
	}

	return []book.Page{p.ContentAt(p.index)}
}

func (p *Pager) CanAdvance() bool {
	return p.index+p.Step() < len(p.pages)
}

func (p *Pager) CanRetreat() bool {
	return p.index > 0
}

// Advance moves forward by step. It refuses, rather than clamps, when the
// move would leave the sequence so the last spread is never cut.
func (p *Pager) Advance(step int) bool {
	if step <= 0 || p.index+step >= len(p.pages) {
		return false
	}
	p.index += step

	return true
}

// Retreat moves back by step, clamping at the first page.
func (p *Pager) Retreat(step int) bool {
	if step <= 0 || p.index == 0 {
		return false
	}
	p.index = max(0, p.index-step)

	return true
}

// SetMode switches between single and dual display. The page list is left
// alone; the index is clamped and rounded down to even for dual mode.
func (p *Pager) SetMode(mode book.DisplayMode) {
	if mode != book.ModeDual {
		mode = book.ModeSingle
	}
	p.mode = mode

	if n := len(p.pages); n > 0 && p.index >= n {
		p.index = n - 1
	}
	if p.mode == book.ModeDual {
		p.index -= p.index % 2
	}
}

type Progress struct {
	Current int
	Total   int
}

func (p *Pager) Progress() Progress {
	if len(p.pages) == 0 {
		return Progress{}
	}

	return Progress{Current: p.index + 1, Total: len(p.pages)}
}

func (pr Progress) Percent() int {
	if pr.Total == 0 {
		return 0
	}

	return pr.Current * 100 / pr.Total
}

func (pr Progress) String() string {
	if pr.Total == 0 {
		return "0 of 0"
	}

	return fmt.Sprintf("Page %d of %d", pr.Current, pr.Total)
}
