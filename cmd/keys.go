package cmd

import (
	"strconv"
	"strings"
)

// termEvent is one decoded piece of raw terminal input: a key code in the
// DOM style used by key bindings, or an SGR mouse report.
type termEvent struct {
	Key   string
	Mouse *mouseEvent
}

type mouseAction int

const (
	mousePress mouseAction = iota
	mouseMotion
	mouseRelease
)

// mouseEvent positions are 1-based terminal cells.
type mouseEvent struct {
	Action mouseAction
	X, Y   int
}

const keyCtrlC = "CtrlC"

var arrowKeys = map[byte]string{
	'A': "ArrowUp",
	'B': "ArrowDown",
	'C': "ArrowRight",
	'D': "ArrowLeft",
}

// parseInput decodes everything a single read from a raw terminal returned.
// Unknown escape sequences are dropped.
func parseInput(buf []byte) []termEvent {
	var out []termEvent

	for i := 0; i < len(buf); {
		b := buf[i]

		if b == 0x1b {
			if i+1 >= len(buf) || buf[i+1] != '[' {
				out = append(out, termEvent{Key: "Escape"})
				i++
				continue
			}

			end := csiEnd(buf, i+2)
			if end < 0 {
				return out
			}

			seq := buf[i+2 : end+1]
			switch {
			case len(seq) > 0 && seq[0] == '<':
				if m, ok := parseSGRMouse(seq); ok {
					out = append(out, termEvent{Mouse: m})
				}
			case len(seq) == 1:
				if name, ok := arrowKeys[seq[0]]; ok {
					out = append(out, termEvent{Key: name})
				}
			}

			i = end + 1
			continue
		}

		if key := byteKey(b); key != "" {
			out = append(out, termEvent{Key: key})
		}
		i++
	}

	return out
}

// csiEnd finds the final byte of a control sequence starting at from.
func csiEnd(buf []byte, from int) int {
	for j := from; j < len(buf); j++ {
		if buf[j] >= 0x40 && buf[j] <= 0x7e && buf[j] != '<' {
			return j
		}
	}
	return -1
}

// parseSGRMouse reads "<b;x;yM" (press or motion) and "<b;x;ym" (release).
func parseSGRMouse(seq []byte) (*mouseEvent, bool) {
	final := seq[len(seq)-1]
	if final != 'M' && final != 'm' {
		return nil, false
	}

	parts := strings.Split(string(seq[1:len(seq)-1]), ";")
	if len(parts) != 3 {
		return nil, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}

	button := nums[0]
	if button&0x40 != 0 {
		// wheel
		return nil, false
	}

	m := &mouseEvent{X: nums[1], Y: nums[2]}
	switch {
	case final == 'm':
		m.Action = mouseRelease
	case button&0x20 != 0:
		m.Action = mouseMotion
	default:
		if button&0x03 != 0 {
			// only the primary button turns pages
			return nil, false
		}
		m.Action = mousePress
	}

	return m, true
}

func byteKey(b byte) string {
	switch {
	case b == 0x03:
		return keyCtrlC
	case b == '\t':
		return "Tab"
	case b == ' ':
		return "Space"
	case b == '\r' || b == '\n':
		return "Enter"
	case b == 0x7f:
		return "Backspace"
	case b >= 'a' && b <= 'z':
		return "Key" + string(b-'a'+'A')
	case b >= 'A' && b <= 'Z':
		return "Key" + string(b)
	case b >= '0' && b <= '9':
		return "Digit" + string(b)
	}

	return ""
}
