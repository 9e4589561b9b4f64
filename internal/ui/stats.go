package ui

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/tachi/internal/util"
)

// Stats accumulates export totals across books.
type Stats struct {
	Pages  atomic.Int64
	Bytes  atomic.Int64
	Failed atomic.Int64
	Books  atomic.Int64
}

func (s *Stats) Add(pages, failed int, bytes int64) {
	s.Pages.Add(int64(pages))
	s.Failed.Add(int64(failed))
	s.Bytes.Add(bytes)
	s.Books.Add(1)
}

func (s *Stats) Summary(elapsed time.Duration) string {
	line := fmt.Sprintf("%d book(s), %d page(s), %s in %s",
		s.Books.Load(), s.Pages.Load(), util.Human(s.Bytes.Load()), elapsed.Round(time.Second))
	if f := s.Failed.Load(); f > 0 {
		line += fmt.Sprintf(", %d page(s) skipped", f)
	}
	return line
}
