package input

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pressed(n int, on ...int) []bool {
	out := make([]bool, n)
	for _, i := range on {
		out[i] = true
	}
	return out
}

func TestGamepadRouter_HeldButtonFiresOnce(t *testing.T) {
	r := NewGamepadRouter(DefaultButtonBindings())

	var got []Command
	for i := 0; i < 5; i++ {
		got = append(got, r.Poll([]PadState{{Index: 0, Pressed: pressed(17, 5)}})...)
	}

	assert.Equal(t, []Command{NextPage}, got)

	assert.Empty(t, r.Poll([]PadState{{Index: 0, Pressed: pressed(17)}}))
	assert.Equal(t, []Command{NextPage}, r.Poll([]PadState{{Index: 0, Pressed: pressed(17, 5)}}))
}

func TestGamepadRouter_PadsAreIndependent(t *testing.T) {
	r := NewGamepadRouter(DefaultButtonBindings())

	got := r.Poll([]PadState{
		{Index: 0, Pressed: pressed(17, 4)},
		{Index: 1, Pressed: pressed(17, 4)},
	})

	assert.Equal(t, []Command{PrevPage, PrevPage}, got)
}

func TestGamepadRouter_UnboundIgnored(t *testing.T) {
	r := NewGamepadRouter(DefaultButtonBindings())

	assert.Empty(t, r.Poll([]PadState{{Index: 0, Pressed: pressed(17, 12)}}))
}

func TestGamepadRouter_ForgetResetsEdge(t *testing.T) {
	r := NewGamepadRouter(DefaultButtonBindings())
	held := []PadState{{Index: 2, Pressed: pressed(17, 3)}}

	require.Len(t, r.Poll(held), 1)
	r.Forget(2)
	assert.Equal(t, []Command{ShowInfo}, r.Poll(held))
}

func TestButtonName(t *testing.T) {
	assert.Equal(t, "R1 / RB", ButtonName(5))
	assert.Equal(t, "Button 20", ButtonName(20))
}

type fakePads struct {
	mu   sync.Mutex
	pads []PadState
}

func (f *fakePads) Gamepads() []PadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pads
}

func TestPoller_Lifecycle(t *testing.T) {
	src := &fakePads{}
	var mu sync.Mutex
	var got []Command

	p := NewPoller(src, NewGamepadRouter(DefaultButtonBindings()), func(c Command) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	assert.False(t, p.Running())

	p.Connect(0)
	p.Connect(1)
	assert.True(t, p.Running())
	assert.Equal(t, 2, p.Connected())

	src.mu.Lock()
	src.pads = []PadState{{Index: 0, Pressed: pressed(17, 5)}}
	src.mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	p.Disconnect(0)
	assert.True(t, p.Running())

	p.Disconnect(1)
	assert.False(t, p.Running())
}

func TestPoller_TickDispatches(t *testing.T) {
	src := &fakePads{pads: []PadState{{Index: 0, Pressed: pressed(17, 0)}}}
	var got []Command

	p := NewPoller(src, NewGamepadRouter(DefaultButtonBindings()), func(c Command) {
		got = append(got, c)
	})

	p.Tick()
	p.Tick()

	assert.Equal(t, []Command{ToggleUI}, got)
}
