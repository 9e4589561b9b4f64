package downloader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brogergvhs/tachi/internal/book"
)

// Numbered is a page together with its 1-based position in the book.
type Numbered struct {
	Number int
	Page   book.Page
}

// Select picks the image pages to export. rng ("3-7") wins over list
// ("1,4,9"); with neither every image page is selected. Numbers refer to
// positions in pages and are 1-based.
func Select(pages []book.Page, rng, list string) ([]Numbered, error) {
	all := make([]Numbered, 0, len(pages))
	for i, p := range pages {
		if p.Kind == book.PageImage {
			all = append(all, Numbered{Number: i + 1, Page: p})
		}
	}

	switch {
	case strings.TrimSpace(rng) != "":
		return selectRange(all, len(pages), rng)
	case strings.TrimSpace(list) != "":
		return selectList(all, len(pages), list)
	}

	return all, nil
}

func selectRange(all []Numbered, total int, rng string) ([]Numbered, error) {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q (want start-end)", rng)
	}

	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid range %q", rng)
	}
	if start <= 0 || end <= 0 || start > end || end > total {
		return nil, fmt.Errorf("range %q outside 1-%d", rng, total)
	}

	out := []Numbered{}
	for _, n := range all {
		if n.Number >= start && n.Number <= end {
			out = append(out, n)
		}
	}

	return out, nil
}

func selectList(all []Numbered, total int, list string) ([]Numbered, error) {
	want := map[int]bool{}
	for p := range strings.SplitSeq(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", p)
		}
		if idx <= 0 || idx > total {
			continue
		}
		want[idx] = true
	}

	out := []Numbered{}
	for _, n := range all {
		if want[n.Number] {
			out = append(out, n)
		}
	}

	return out, nil
}
