package reader

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/loader"
)

var ErrLoadInFlight = errors.New("another book is still loading")

// ContentLoader produces the page sequence for a session.
type ContentLoader interface {
	Load(ctx context.Context, b *book.Book, target string) (*loader.Content, error)
}

type Logger interface {
	Debugf(string, ...any)
	Errorf(string, ...any)
}

// Manager opens sessions, allowing a single load in flight at a time.
type Manager struct {
	loader  ContentLoader
	clock   Clock
	log     Logger
	loading atomic.Bool
}

func NewManager(l ContentLoader, clock Clock, log Logger) *Manager {
	if clock == nil {
		clock = SystemClock{}
	}

	return &Manager{loader: l, clock: clock, log: log}
}

func (m *Manager) Loading() bool {
	return m.loading.Load()
}

// Open loads target and returns a session at its first page. A failed load
// still opens the session, with an empty page sequence.
func (m *Manager) Open(ctx context.Context, b *book.Book, target string) (*Session, error) {
	if !m.loading.CompareAndSwap(false, true) {
		return nil, ErrLoadInFlight
	}
	defer m.loading.Store(false)

	c, err := m.loader.Load(ctx, b, target)
	if err != nil {
		m.log.Errorf("reader: %s opened without pages: %v", target, err)
		if c == nil {
			c = &loader.Content{URL: target}
		}
		c.Pages = []book.Page{}
	}

	s := NewSession(b, c, m.clock)
	m.log.Debugf("reader: opened %s with %d pages (%s)", target, s.Total(), s.Mode())

	return s, nil
}
