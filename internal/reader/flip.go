package reader

import (
	"errors"
	"math"
	"time"
)

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseCommitting
	PhaseCancelling
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseCommitting:
		return "committing"
	case PhaseCancelling:
		return "cancelling"
	default:
		return "idle"
	}
}

const (
	// CommitThreshold is the drag progress a release has to exceed to turn
	// the page.
	CommitThreshold = 0.3

	DragSettleDuration = 400 * time.Millisecond
	FlipDuration       = 500 * time.Millisecond
)

var (
	ErrFlipBusy    = errors.New("a page flip is already in progress")
	ErrAtBoundary  = errors.New("no page in that direction")
	ErrNotDragging = errors.New("no drag in progress")
	ErrBadViewport = errors.New("viewport width must be positive")
)

type FlipState struct {
	Direction Direction
	Progress  float64
	Phase     Phase
}

// Rotation is the page angle in degrees for the current progress.
func (s FlipState) Rotation() float64 {
	if s.Direction == Forward {
		return -180 * s.Progress
	}
	return -180 + 180*s.Progress
}

func (s FlipState) Shadow() float64 {
	return math.Sin(s.Progress*math.Pi) * 0.3
}

// Flipper drives one page turn at a time: idle -> dragging ->
// committing|cancelling -> idle. Programmatic flips skip dragging. Settling
// is scheduled on the timer queue and cannot be interrupted.
type Flipper struct {
	pager  *Pager
	timers *TimerQueue
	state  FlipState

	startX float64
	width  float64

	// OnSettle is called after a flip returns to idle.
	OnSettle func(committed bool)
}

func NewFlipper(p *Pager, q *TimerQueue) *Flipper {
	return &Flipper{pager: p, timers: q}
}

func (f *Flipper) State() FlipState {
	return f.state
}

func (f *Flipper) Idle() bool {
	return f.state.Phase == PhaseIdle
}

// BeginDrag starts a gesture at pointer x over a viewport of the given
// width. It is rejected while another flip is active.
func (f *Flipper) BeginDrag(dir Direction, x, viewportWidth float64) error {
	if !f.Idle() {
		return ErrFlipBusy
	}
	if viewportWidth <= 0 {
		return ErrBadViewport
	}

	f.state = FlipState{Direction: dir, Phase: PhaseDragging}
	f.startX = x
	f.width = viewportWidth

	return nil
}

// DragTo updates the progress from the pointer position: horizontal
// displacement over half the viewport, signed by direction, clamped to
// [0, 1].
func (f *Flipper) DragTo(x float64) (float64, error) {
	if f.state.Phase != PhaseDragging {
		return 0, ErrNotDragging
	}

	delta := x - f.startX
	if f.state.Direction == Forward {
		delta = -delta
	}
	f.state.Progress = clamp01(delta / (f.width / 2))

	return f.state.Progress, nil
}

// Release ends the gesture. Progress above CommitThreshold commits the
// flip, anything else cancels it.
func (f *Flipper) Release(now time.Time) (Phase, error) {
	if f.state.Phase != PhaseDragging {
		return f.state.Phase, ErrNotDragging
	}

	commit := f.state.Progress > CommitThreshold
	if commit {
		f.state.Phase = PhaseCommitting
	} else {
		f.state.Phase = PhaseCancelling
	}
	f.timers.Schedule(now.Add(DragSettleDuration), func() { f.settle(commit) })

	return f.state.Phase, nil
}

// Flip starts a programmatic page turn that always commits.
func (f *Flipper) Flip(dir Direction, now time.Time) error {
	if !f.Idle() {
		return ErrFlipBusy
	}

	switch dir {
	case Forward:
		if !f.pager.CanAdvance() {
			return ErrAtBoundary
		}
		f.state = FlipState{Direction: Forward, Progress: 1, Phase: PhaseCommitting}
	case Backward:
		if !f.pager.CanRetreat() {
			return ErrAtBoundary
		}
		f.state = FlipState{Direction: Backward, Progress: 0, Phase: PhaseCommitting}
	}
	f.timers.Schedule(now.Add(FlipDuration), func() { f.settle(true) })

	return nil
}

func (f *Flipper) settle(commit bool) {
	if commit {
		step := f.pager.Step()
		if f.state.Direction == Forward {
			f.pager.Advance(step)
		} else {
			f.pager.Retreat(step)
		}
	}

	f.state = FlipState{Direction: f.state.Direction, Phase: PhaseIdle}
	if f.OnSettle != nil {
		f.OnSettle(commit)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
