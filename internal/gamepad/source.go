// Package gamepad reads joysticks through the platform joystick API
// (/dev/input/js* on Linux) and feeds them to an input.Poller.
package gamepad

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"

	"github.com/brogergvhs/tachi/internal/input"
)

const (
	// MaxPads is how many joystick slots are checked on each scan.
	MaxPads = 4

	ScanInterval = time.Second

	// State.Buttons is a 32-bit mask.
	maxButtons = 32
)

type Opener func(id int) (joystick.Joystick, error)

type Logger interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}

// Devices is told about pads appearing and disappearing. *input.Poller
// implements it.
type Devices interface {
	Connect(pad int)
	Disconnect(pad int)
}

type pad struct {
	js     joystick.Joystick
	failed bool
}

// Source implements input.GamepadSource over joystick devices. Reads that
// fail mark the pad lost; the next Scan closes it and reports the
// disconnect.
type Source struct {
	open Opener
	max  int
	log  Logger

	mu   sync.Mutex
	pads map[int]*pad
}

func NewSource(log Logger) *Source {
	return NewSourceWith(joystick.Open, MaxPads, log)
}

func NewSourceWith(open Opener, maxPads int, log Logger) *Source {
	return &Source{
		open: open,
		max:  maxPads,
		log:  log,
		pads: map[int]*pad{},
	}
}

// Gamepads samples every connected pad, in slot order.
func (s *Source) Gamepads() []input.PadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.pads))
	for id := range s.pads {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]input.PadState, 0, len(ids))
	for _, id := range ids {
		p := s.pads[id]
		if p.failed {
			continue
		}

		st, err := p.js.Read()
		if err != nil {
			p.failed = true
			s.log.Warnf("gamepad %d: read failed: %v", id, err)
			continue
		}

		out = append(out, input.PadState{Index: id, Pressed: pressed(st.Buttons, p.js.ButtonCount())})
	}

	return out
}

func pressed(mask uint32, count int) []bool {
	count = min(max(count, 0), maxButtons)

	out := make([]bool, count)
	for i := range out {
		out[i] = mask&(1<<uint(i)) != 0
	}
	return out
}

// Scan opens pads that appeared and closes the ones that failed, then
// reports both to devices. devices is called without the source lock held.
func (s *Source) Scan(devices Devices) {
	var added, removed []int

	s.mu.Lock()
	for id := 0; id < s.max; id++ {
		if p, ok := s.pads[id]; ok {
			if p.failed {
				p.js.Close()
				delete(s.pads, id)
				removed = append(removed, id)
			}
			continue
		}

		js, err := s.open(id)
		if err != nil {
			continue
		}
		s.pads[id] = &pad{js: js}
		added = append(added, id)
		s.log.Debugf("gamepad %d: %s connected (%d buttons)", id, js.Name(), js.ButtonCount())
	}
	s.mu.Unlock()

	for _, id := range removed {
		s.log.Debugf("gamepad %d: disconnected", id)
		devices.Disconnect(id)
	}
	for _, id := range added {
		devices.Connect(id)
	}
}

// Watch scans every interval until ctx is done, then closes all pads.
func (s *Source) Watch(ctx context.Context, interval time.Duration, devices Devices) {
	s.Scan(devices)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close(devices)
			return
		case <-t.C:
			s.Scan(devices)
		}
	}
}

func (s *Source) Close(devices Devices) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.pads))
	for id, p := range s.pads {
		p.js.Close()
		ids = append(ids, id)
	}
	s.pads = map[int]*pad{}
	s.mu.Unlock()

	for _, id := range ids {
		devices.Disconnect(id)
	}
}
