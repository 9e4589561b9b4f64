// Package transform implements the pre-extraction customization run against
// a fetched document before images are selected.
//
// A program is a list of steps, one YAML flow mapping per line:
//
//	# reveal lazily loaded pages
//	{op: copy-attr, select: "img.lazy", from: data-original, to: src}
//	{op: remove, select: ".ads"}
//
// Blank lines and lines starting with "#", "//" or "/*" are ignored, so
// programs merged with the injection override marker stay valid.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

var ErrUnknownOp = errors.New("unknown transform op")

type Op string

const (
	OpSetAttr     Op = "set-attr"
	OpCopyAttr    Op = "copy-attr"
	OpRemoveAttr  Op = "remove-attr"
	OpAddClass    Op = "add-class"
	OpRemoveClass Op = "remove-class"
	OpToggleClass Op = "toggle-class"
	OpRemove      Op = "remove"
)

type Step struct {
	Op     Op     `yaml:"op"`
	Select string `yaml:"select"`
	Attr   string `yaml:"attr,omitempty"`
	Value  string `yaml:"value,omitempty"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to,omitempty"`
	Class  string `yaml:"class,omitempty"`
}

type Program []Step

// Parse reads a program. Any malformed line fails the whole program.
func Parse(src string) (Program, error) {
	var prog Program

	for i, raw := range strings.Split(src, "\n") {
		ln := strings.TrimSpace(raw)
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "//") || strings.HasPrefix(ln, "/*") {
			continue
		}

		var s Step
		if err := yaml.Unmarshal([]byte(ln), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := s.check(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		prog = append(prog, s)
	}

	return prog, nil
}

func (s Step) check() error {
	if s.Select == "" {
		return fmt.Errorf("%s: select is required", s.Op)
	}
	if _, err := cascadia.Compile(s.Select); err != nil {
		return fmt.Errorf("%s: bad selector %q: %w", s.Op, s.Select, err)
	}

	switch s.Op {
	case OpSetAttr:
		if s.Attr == "" {
			return fmt.Errorf("%s: attr is required", s.Op)
		}
	case OpRemoveAttr:
		if s.Attr == "" {
			return fmt.Errorf("%s: attr is required", s.Op)
		}
	case OpCopyAttr:
		if s.From == "" || s.To == "" {
			return fmt.Errorf("%s: from and to are required", s.Op)
		}
	case OpAddClass, OpRemoveClass, OpToggleClass:
		if s.Class == "" {
			return fmt.Errorf("%s: class is required", s.Op)
		}
	case OpRemove:
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
	}

	return nil
}

// Apply runs every step in order and returns how many elements were
// touched in total.
func (p Program) Apply(doc *goquery.Document) int {
	touched := 0
	for _, s := range p {
		touched += s.apply(doc)
	}

	return touched
}

func (s Step) apply(doc *goquery.Document) int {
	sel := doc.Find(s.Select)

	switch s.Op {
	case OpSetAttr:
		sel.SetAttr(s.Attr, s.Value)
	case OpRemoveAttr:
		sel.RemoveAttr(s.Attr)
	case OpCopyAttr:
		n := 0
		sel.Each(func(_ int, el *goquery.Selection) {
			if v, ok := el.Attr(s.From); ok && strings.TrimSpace(v) != "" {
				el.SetAttr(s.To, v)
				n++
			}
		})
		return n
	case OpAddClass:
		sel.AddClass(s.Class)
	case OpRemoveClass:
		sel.RemoveClass(s.Class)
	case OpToggleClass:
		sel.ToggleClass(s.Class)
	case OpRemove:
		sel.Remove()
	}

	return sel.Length()
}
