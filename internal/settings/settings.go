// Package settings persists the reader preferences: flip mode, keyboard
// bindings and gamepad bindings.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/brogergvhs/tachi/internal/input"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	FlipMode          input.FlipMode       `yaml:"flip_mode" validate:"oneof=corner side click"`
	Hotkeys           input.KeyBindings    `yaml:"hotkeys"`
	ControllerMapping input.ButtonBindings `yaml:"controller_mapping"`
}

func Defaults() Settings {
	return Settings{
		FlipMode:          input.FlipCorner,
		Hotkeys:           input.DefaultKeyBindings(),
		ControllerMapping: input.DefaultButtonBindings(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

type Logger interface {
	Warnf(string, ...any)
}

// Store is the single owner of the settings file. Readers take a copy with
// Get; changes go through Update, which writes before returning.
type Store struct {
	path string
	log  Logger

	mu   sync.RWMutex
	cur  Settings
	subs []func(Settings)
}

// Open loads path. A missing file yields the defaults, a malformed or
// invalid one the defaults plus a warning.
func Open(path string, log Logger) *Store {
	s := &Store{path: path, log: log, cur: Defaults()}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		log.Warnf("settings: reading %s failed, using defaults: %v", path, err)
		return s
	}

	loaded := Defaults()
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		log.Warnf("settings: %s is malformed, using defaults: %v", path, err)
		return s
	}
	if err := loaded.Validate(); err != nil {
		log.Warnf("settings: %s rejected, using defaults: %v", path, err)
		return s
	}

	s.cur = loaded
	return s
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cur
}

// Subscribe registers fn to receive every successfully stored update.
func (s *Store) Subscribe(fn func(Settings)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Update applies fn to a copy of the current settings, validates and
// persists the result, then notifies subscribers. On error nothing changes.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()

	next := s.cur
	fn(&next)

	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.write(next); err != nil {
		s.mu.Unlock()
		return err
	}

	s.cur = next
	subs := append([]func(Settings){}, s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}

	return nil
}

// Reset stores the defaults.
func (s *Store) Reset() error {
	return s.Update(func(st *Settings) { *st = Defaults() })
}

func (s *Store) write(st Settings) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
