package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyRouter_Defaults(t *testing.T) {
	r := NewKeyRouter(DefaultKeyBindings())

	tests := []struct {
		code string
		want Command
	}{
		{"KeyQ", PrevPage},
		{"KeyE", NextPage},
		{"Space", ToggleUI},
		{"Tab", ShowInfo},
		{"Escape", Close},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := r.KeyDown(tt.code)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := r.KeyDown("KeyZ")
	assert.False(t, ok)
}

func TestKeyRouter_CustomKeepsDefaults(t *testing.T) {
	b := DefaultKeyBindings()
	b.NextPage = "ArrowRight"
	r := NewKeyRouter(b)

	got, ok := r.KeyDown("ArrowRight")
	assert.True(t, ok)
	assert.Equal(t, NextPage, got)

	got, ok = r.KeyDown("KeyE")
	assert.True(t, ok)
	assert.Equal(t, NextPage, got)
}

func TestKeyRouter_KeyUpHidesInfo(t *testing.T) {
	r := NewKeyRouter(DefaultKeyBindings())

	assert.True(t, r.KeyUp("Tab"))
	assert.False(t, r.KeyUp("KeyE"))
}

func TestParseAction(t *testing.T) {
	c, ok := ParseAction("nextPage")
	assert.True(t, ok)
	assert.Equal(t, NextPage, c)

	_, ok = ParseAction("close")
	assert.False(t, ok)
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "Q", KeyName("KeyQ"))
	assert.Equal(t, "F5", KeyName("F5"))
}
