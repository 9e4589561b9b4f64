package reader

import (
	"errors"
	"time"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/input"
	"github.com/brogergvhs/tachi/internal/loader"
)

// InfoDuration is how long the page info panel stays up after ShowInfo.
const InfoDuration = 2 * time.Second

var ErrClosed = errors.New("reader session is closed")

// Info is the page info panel content.
type Info struct {
	Title    string
	Chapter  string
	Progress Progress
}

// Session is one open book. It is not safe for concurrent use: input,
// rendering and Tick are expected to run on the same goroutine.
type Session struct {
	book    *book.Book
	content *loader.Content

	clock  Clock
	timers *TimerQueue
	pager  *Pager
	flip   *Flipper

	uiVisible   bool
	infoVisible bool
	infoTimer   TimerID
	infoArmed   bool
	closed      bool

	// OnRender is called whenever what is on screen changes.
	OnRender func(*Session)
}

func NewSession(b *book.Book, c *loader.Content, clock Clock) *Session {
	if clock == nil {
		clock = SystemClock{}
	}
	if c == nil {
		c = &loader.Content{}
	}

	s := &Session{
		book:      b,
		content:   c,
		clock:     clock,
		timers:    NewTimerQueue(),
		uiVisible: true,
	}
	s.pager = NewPager(c.Pages, c.Mode)
	s.flip = NewFlipper(s.pager, s.timers)
	s.flip.OnSettle = func(bool) { s.render() }

	return s
}

func (s *Session) Book() *book.Book         { return s.book }
func (s *Session) Content() *loader.Content { return s.content }
func (s *Session) Index() int               { return s.pager.Index() }
func (s *Session) Total() int               { return s.pager.Total() }
func (s *Session) Mode() book.DisplayMode   { return s.pager.Mode() }
func (s *Session) Visible() []book.Page     { return s.pager.Visible() }
func (s *Session) Progress() Progress       { return s.pager.Progress() }
func (s *Session) Flip() FlipState          { return s.flip.State() }
func (s *Session) UIVisible() bool          { return s.uiVisible }
func (s *Session) InfoVisible() bool        { return s.infoVisible }
func (s *Session) Closed() bool             { return s.closed }

func (s *Session) Info() Info {
	chapter := s.content.Title
	if chapter == "" {
		chapter = "N/A"
	}

	title := ""
	if s.book != nil {
		title = s.book.Name
	}

	return Info{Title: title, Chapter: chapter, Progress: s.pager.Progress()}
}

// Handle applies one navigation command. Flips at the ends of the book are
// ignored; ErrFlipBusy is returned while another flip is settling.
func (s *Session) Handle(cmd input.Command) error {
	if s.closed {
		return ErrClosed
	}

	switch cmd {
	case input.NextPage:
		return s.turn(Forward)
	case input.PrevPage:
		return s.turn(Backward)
	case input.ToggleUI:
		s.uiVisible = !s.uiVisible
		s.render()
	case input.ShowInfo:
		s.ShowInfo()
	case input.Close:
		s.Close()
	}

	return nil
}

func (s *Session) turn(dir Direction) error {
	err := s.flip.Flip(dir, s.clock.Now())
	if errors.Is(err, ErrAtBoundary) {
		return nil
	}
	if err == nil {
		s.render()
	}

	return err
}

// ShowInfo shows the info panel and (re)arms its auto-hide timer.
func (s *Session) ShowInfo() {
	if s.closed {
		return
	}
	if s.infoArmed {
		s.timers.Cancel(s.infoTimer)
	}

	s.infoVisible = true
	s.infoArmed = true
	s.infoTimer = s.timers.Schedule(s.clock.Now().Add(InfoDuration), func() {
		s.infoArmed = false
		s.hideInfo()
	})
	s.render()
}

// HideInfo hides the info panel right away, as on release of the info key.
func (s *Session) HideInfo() {
	if s.infoArmed {
		s.timers.Cancel(s.infoTimer)
		s.infoArmed = false
	}
	s.hideInfo()
}

func (s *Session) hideInfo() {
	if !s.infoVisible {
		return
	}
	s.infoVisible = false
	s.render()
}

func (s *Session) BeginDrag(dir Direction, x, viewportWidth float64) error {
	if s.closed {
		return ErrClosed
	}
	if !s.flip.Idle() {
		return ErrFlipBusy
	}
	switch dir {
	case Forward:
		if !s.pager.CanAdvance() {
			return ErrAtBoundary
		}
	case Backward:
		if !s.pager.CanRetreat() {
			return ErrAtBoundary
		}
	}

	if err := s.flip.BeginDrag(dir, x, viewportWidth); err != nil {
		return err
	}
	s.render()

	return nil
}

func (s *Session) DragTo(x float64) (float64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	p, err := s.flip.DragTo(x)
	if err == nil {
		s.render()
	}

	return p, err
}

func (s *Session) Release() (Phase, error) {
	if s.closed {
		return PhaseIdle, ErrClosed
	}

	return s.flip.Release(s.clock.Now())
}

// Tick runs every timer due by now and reports how many fired.
func (s *Session) Tick() int {
	if s.closed {
		return 0
	}

	return s.timers.Run(s.clock.Now())
}

// SetMode switches single/dual display. It is refused while a flip is
// settling.
func (s *Session) SetMode(mode book.DisplayMode) error {
	if s.closed {
		return ErrClosed
	}
	if !s.flip.Idle() {
		return ErrFlipBusy
	}

	s.pager.SetMode(mode)
	s.render()

	return nil
}

func (s *Session) ToggleMode() error {
	if s.pager.Mode() == book.ModeDual {
		return s.SetMode(book.ModeSingle)
	}

	return s.SetMode(book.ModeDual)
}

// Close discards the session. Timers still pending never fire.
func (s *Session) Close() {
	if s.closed {
		return
	}

	s.closed = true
	s.render()
}

func (s *Session) render() {
	if s.OnRender != nil {
		s.OnRender(s)
	}
}
