package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(events []termEvent) []string {
	var out []string
	for _, e := range events {
		if e.Mouse == nil {
			out = append(out, e.Key)
		}
	}
	return out
}

func TestParseInput_Keys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"letters", "qE", []string{"KeyQ", "KeyE"}},
		{"space and tab", " \t", []string{"Space", "Tab"}},
		{"digits", "19", []string{"Digit1", "Digit9"}},
		{"lone escape", "\x1b", []string{"Escape"}},
		{"arrows", "\x1b[D\x1b[C", []string{"ArrowLeft", "ArrowRight"}},
		{"ctrl-c", "\x03", []string{keyCtrlC}},
		{"unknown csi dropped", "\x1b[15~q", []string{"KeyQ"}},
		{"escape then key", "\x1bq", []string{"Escape", "KeyQ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keysOf(parseInput([]byte(tt.in))))
		})
	}
}

func TestParseInput_Mouse(t *testing.T) {
	events := parseInput([]byte("\x1b[<0;10;5M\x1b[<32;14;5M\x1b[<0;20;5m"))
	require.Len(t, events, 3)

	assert.Equal(t, &mouseEvent{Action: mousePress, X: 10, Y: 5}, events[0].Mouse)
	assert.Equal(t, &mouseEvent{Action: mouseMotion, X: 14, Y: 5}, events[1].Mouse)
	assert.Equal(t, &mouseEvent{Action: mouseRelease, X: 20, Y: 5}, events[2].Mouse)
}

func TestParseInput_IgnoresWheelAndSecondaryButtons(t *testing.T) {
	assert.Empty(t, parseInput([]byte("\x1b[<64;3;3M")))
	assert.Empty(t, parseInput([]byte("\x1b[<2;3;3M")))
}

func TestParseInput_TruncatedSequence(t *testing.T) {
	assert.Equal(t, []string{"KeyA"}, keysOf(parseInput([]byte("a\x1b[<0;1"))))
}
