package input

import "sync"

// KeyBindings uses DOM-style key codes ("KeyQ", "Space", "ArrowLeft").
type KeyBindings struct {
	PageInfo   string `yaml:"page_info" validate:"required"`
	PrevPage   string `yaml:"prev_page" validate:"required"`
	NextPage   string `yaml:"next_page" validate:"required"`
	ToggleInfo string `yaml:"toggle_info" validate:"required"`
}

func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		PageInfo:   "Tab",
		PrevPage:   "KeyQ",
		NextPage:   "KeyE",
		ToggleInfo: "Space",
	}
}

func (b *KeyBindings) Set(c Command, code string) bool {
	switch c {
	case PrevPage:
		b.PrevPage = code
	case NextPage:
		b.NextPage = code
	case ToggleUI:
		b.ToggleInfo = code
	case ShowInfo:
		b.PageInfo = code
	default:
		return false
	}

	return true
}

// KeyRouter maps key codes to commands. The default keys stay active next
// to custom bindings and Escape always closes.
type KeyRouter struct {
	mu sync.RWMutex
	b  KeyBindings
}

func NewKeyRouter(b KeyBindings) *KeyRouter {
	return &KeyRouter{b: b}
}

func (r *KeyRouter) Update(b KeyBindings) {
	r.mu.Lock()
	r.b = b
	r.mu.Unlock()
}

func (r *KeyRouter) Bindings() KeyBindings {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.b
}

func (r *KeyRouter) KeyDown(code string) (Command, bool) {
	b := r.Bindings()
	def := DefaultKeyBindings()

	switch {
	case code == "":
		return None, false
	case code == b.PrevPage || code == def.PrevPage:
		return PrevPage, true
	case code == b.NextPage || code == def.NextPage:
		return NextPage, true
	case code == b.ToggleInfo || code == def.ToggleInfo:
		return ToggleUI, true
	case code == b.PageInfo || code == def.PageInfo:
		return ShowInfo, true
	case code == "Escape":
		return Close, true
	}

	return None, false
}

// KeyUp reports whether releasing code should hide the page info panel.
func (r *KeyRouter) KeyUp(code string) bool {
	b := r.Bindings()
	return code != "" && (code == b.PageInfo || code == DefaultKeyBindings().PageInfo)
}

var keyNames = map[string]string{
	"Tab":        "Tab",
	"Space":      "Space",
	"KeyQ":       "Q",
	"KeyE":       "E",
	"KeyW":       "W",
	"KeyA":       "A",
	"KeyS":       "S",
	"KeyD":       "D",
	"ArrowLeft":  "←",
	"ArrowRight": "→",
	"ArrowUp":    "↑",
	"ArrowDown":  "↓",
}

func KeyName(code string) string {
	if n, ok := keyNames[code]; ok {
		return n
	}
	return code
}
