// Package input normalizes keyboard, pointer and gamepad input into the
// reader's navigation commands.
package input

type Command int

const (
	None Command = iota
	PrevPage
	NextPage
	ToggleUI
	ShowInfo
	Close
)

func (c Command) String() string {
	switch c {
	case PrevPage:
		return "prevPage"
	case NextPage:
		return "nextPage"
	case ToggleUI:
		return "toggleInfo"
	case ShowInfo:
		return "pageInfo"
	case Close:
		return "close"
	default:
		return "none"
	}
}

// Actions lists the bindable commands by their settings name.
var Actions = []Command{PrevPage, NextPage, ToggleUI, ShowInfo}

// ParseAction maps a settings action name to its command.
func ParseAction(name string) (Command, bool) {
	for _, c := range Actions {
		if c.String() == name {
			return c, true
		}
	}

	return None, false
}

type FlipMode string

const (
	FlipCorner FlipMode = "corner"
	FlipSide   FlipMode = "side"
	FlipClick  FlipMode = "click"
)
