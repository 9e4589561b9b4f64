package input

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PollInterval is the gamepad sampling cadence, about 60 times a second.
const PollInterval = 16 * time.Millisecond

// ButtonBindings uses standard gamepad layout button indices.
type ButtonBindings struct {
	PrevPage   int `yaml:"prev_page" validate:"gte=0"`
	NextPage   int `yaml:"next_page" validate:"gte=0"`
	ToggleInfo int `yaml:"toggle_info" validate:"gte=0"`
	PageInfo   int `yaml:"page_info" validate:"gte=0"`
}

func DefaultButtonBindings() ButtonBindings {
	return ButtonBindings{
		PrevPage:   4,
		NextPage:   5,
		ToggleInfo: 0,
		PageInfo:   3,
	}
}

func (b *ButtonBindings) Set(c Command, button int) bool {
	switch c {
	case PrevPage:
		b.PrevPage = button
	case NextPage:
		b.NextPage = button
	case ToggleUI:
		b.ToggleInfo = button
	case ShowInfo:
		b.PageInfo = button
	default:
		return false
	}

	return true
}

func (b ButtonBindings) command(button int) (Command, bool) {
	switch button {
	case b.PrevPage:
		return PrevPage, true
	case b.NextPage:
		return NextPage, true
	case b.ToggleInfo:
		return ToggleUI, true
	case b.PageInfo:
		return ShowInfo, true
	}

	return None, false
}

// PadState is one sample of a connected gamepad.
type PadState struct {
	Index   int
	Pressed []bool
}

type buttonKey struct {
	pad, button int
}

// GamepadRouter turns samples into commands on the false to true edge of
// each bound button. Holding or releasing a button fires nothing.
type GamepadRouter struct {
	mu   sync.Mutex
	b    ButtonBindings
	prev map[buttonKey]bool
}

func NewGamepadRouter(b ButtonBindings) *GamepadRouter {
	return &GamepadRouter{b: b, prev: map[buttonKey]bool{}}
}

func (r *GamepadRouter) Update(b ButtonBindings) {
	r.mu.Lock()
	r.b = b
	r.mu.Unlock()
}

func (r *GamepadRouter) Poll(pads []PadState) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Command
	for _, pad := range pads {
		for i, pressed := range pad.Pressed {
			k := buttonKey{pad.Index, i}
			if pressed && !r.prev[k] {
				if c, ok := r.b.command(i); ok {
					out = append(out, c)
				}
			}
			r.prev[k] = pressed
		}
	}

	return out
}

// Forget drops the remembered state of a disconnected pad.
func (r *GamepadRouter) Forget(pad int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.prev {
		if k.pad == pad {
			delete(r.prev, k)
		}
	}
}

var buttonNames = map[int]string{
	0:  "A / Cross",
	1:  "B / Circle",
	2:  "X / Square",
	3:  "Y / Triangle",
	4:  "L1 / LB",
	5:  "R1 / RB",
	6:  "L2 / LT",
	7:  "R2 / RT",
	8:  "Select / Share",
	9:  "Start / Options",
	10: "L3 (Left Stick)",
	11: "R3 (Right Stick)",
	12: "D-Pad Up",
	13: "D-Pad Down",
	14: "D-Pad Left",
	15: "D-Pad Right",
	16: "Home / PS",
}

func ButtonName(i int) string {
	if n, ok := buttonNames[i]; ok {
		return n
	}
	return fmt.Sprintf("Button %d", i)
}

// GamepadSource samples the currently connected pads.
type GamepadSource interface {
	Gamepads() []PadState
}

// Poller samples a GamepadSource periodically while at least one pad is
// connected and hands resulting commands to dispatch. Dispatch runs on the
// polling goroutine and must not call Connect or Disconnect.
type Poller struct {
	src      GamepadSource
	router   *GamepadRouter
	dispatch func(Command)
	interval time.Duration

	mu      sync.Mutex
	devices map[int]bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPoller(src GamepadSource, router *GamepadRouter, dispatch func(Command)) *Poller {
	return &Poller{
		src:      src,
		router:   router,
		dispatch: dispatch,
		interval: PollInterval,
		devices:  map[int]bool{},
	}
}

func (p *Poller) Connect(pad int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.devices[pad] = true
	if p.cancel == nil {
		p.start()
	}
}

func (p *Poller) Disconnect(pad int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.devices, pad)
	p.router.Forget(pad)
	if len(p.devices) == 0 {
		p.stop()
	}
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancel != nil
}

func (p *Poller) Connected() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.devices)
}

// Tick takes one sample and dispatches the commands it produces.
func (p *Poller) Tick() {
	for _, c := range p.router.Poll(p.src.Gamepads()) {
		p.dispatch(c)
	}
}

func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.devices = map[int]bool{}
	p.stop()
}

func (p *Poller) start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)

		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p.Tick()
			}
		}
	}()
}

func (p *Poller) stop() {
	if p.cancel == nil {
		return
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}
