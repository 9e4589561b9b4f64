package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/gamepad"
	"github.com/brogergvhs/tachi/internal/input"
	"github.com/brogergvhs/tachi/internal/reader"
	"github.com/brogergvhs/tachi/internal/settings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	mouseOn  = "\x1b[?1002h\x1b[?1006h"
	mouseOff = "\x1b[?1002l\x1b[?1006l"
)

func init() {
	readCmd := &cobra.Command{
		Use:   "read [url]",
		Short: "Open a URL as a paginated book in the terminal",
		Long: `Open a URL as a paginated book in the terminal.

Page turns use the configured hotkeys (defaults: Q back, E forward, Space
toggles the UI, Tab shows page info) or the mouse according to the flip
mode. N and P follow the chapter links, M switches single/two-page
display, Escape or Ctrl-C closes the book. Connected gamepads use the
controller mapping from ` + "`tachi settings`" + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRead,
	}

	readCmd.Flags().StringVarP(&flagBook, "book", "b", "", "book id, name or descriptor file")

	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(baseOptions())
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()

	b, err := rt.resolveBook(flagBook)
	if err != nil {
		return err
	}

	target, err := rt.targetURL(b, args)
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("read needs an interactive terminal")
	}

	v := &terminalView{
		out:      os.Stdout,
		settings: rt.settings,
		keys:     input.NewKeyRouter(rt.settings.Get().Hotkeys),
		pointer:  input.PointerRouter{Mode: input.FlipMode(rt.settings.Get().FlipMode)},
		pads:     input.NewGamepadRouter(rt.settings.Get().ControllerMapping),
		gamepads: gamepad.NewSource(rt.log),
		manager:  reader.NewManager(rt.loader, reader.SystemClock{}, rt.log),
		book:     b,
		fd:       fd,
	}

	changes := make(chan settings.Settings, 1)
	rt.settings.Subscribe(func(s settings.Settings) {
		select {
		case changes <- s:
		default:
		}
	})

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer func() {
		fmt.Fprint(v.out, mouseOff)
		_ = term.Restore(fd, oldState)
		fmt.Println()
	}()
	fmt.Fprint(v.out, mouseOn)

	return v.run(context.Background(), target, changes)
}

type opened struct {
	session *reader.Session
	err     error
}

// terminalView drives one reader session from raw terminal input. All
// session calls happen on the goroutine running run.
type terminalView struct {
	out      io.Writer
	settings *settings.Store
	keys     *input.KeyRouter
	pointer  input.PointerRouter
	pads     *input.GamepadRouter
	gamepads *gamepad.Source
	manager  *reader.Manager
	book     *book.Book
	fd       int

	session *reader.Session
	status  string
}

func (v *terminalView) run(ctx context.Context, target string, changes <-chan settings.Settings) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan []termEvent)
	go readTerminal(ctx, os.Stdin, events)

	loads := make(chan opened, 1)
	v.open(ctx, target, loads)

	// The poller samples on its own goroutine; commands are handed over
	// here so the session stays on this one.
	padCmds := make(chan input.Command, 16)
	poller := input.NewPoller(v.gamepads, v.pads, func(c input.Command) {
		select {
		case padCmds <- c:
		default:
		}
	})

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		v.gamepads.Watch(watchCtx, gamepad.ScanInterval, poller)
	}()
	defer func() {
		stopWatch()
		<-watchDone
		poller.Close()
	}()

	ticker := time.NewTicker(input.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case o := <-loads:
			if o.err != nil {
				v.setStatus(o.err.Error())
				continue
			}
			if v.session != nil {
				v.session.Close()
			}
			v.session = o.session
			v.session.OnRender = v.render
			v.status = ""
			v.render(v.session)

		case s := <-changes:
			v.keys.Update(s.Hotkeys)
			v.pads.Update(s.ControllerMapping)
			v.pointer.Mode = input.FlipMode(s.FlipMode)

		case c := <-padCmds:
			if quit := v.dispatch(c); quit {
				return nil
			}

		case evs, ok := <-events:
			if !ok {
				return nil
			}
			for _, ev := range evs {
				if quit := v.handle(ctx, ev, loads); quit {
					return nil
				}
			}

		case <-ticker.C:
			if v.session != nil {
				v.session.Tick()
			}
		}
	}
}

// open loads target in the background. The manager refuses a second load
// while one is in flight.
func (v *terminalView) open(ctx context.Context, target string, loads chan<- opened) {
	if target == "" {
		v.setStatus("no chapter link in that direction")
		return
	}
	if v.manager.Loading() {
		v.setStatus(reader.ErrLoadInFlight.Error())
		return
	}

	v.setStatus("loading " + target + " ...")
	go func() {
		s, err := v.manager.Open(ctx, v.book, target)
		loads <- opened{session: s, err: err}
	}()
}

func (v *terminalView) handle(ctx context.Context, ev termEvent, loads chan<- opened) bool {
	if ev.Mouse != nil {
		v.handleMouse(*ev.Mouse)
		return false
	}

	if ev.Key == keyCtrlC {
		if v.session != nil {
			v.session.Close()
		}
		return true
	}

	if c, ok := v.keys.KeyDown(ev.Key); ok {
		return v.dispatch(c)
	}

	if v.session == nil {
		return false
	}

	switch ev.Key {
	case "KeyN":
		v.open(ctx, v.session.Content().Next, loads)
	case "KeyP":
		v.open(ctx, v.session.Content().Prev, loads)
	case "KeyM":
		if err := v.session.ToggleMode(); err != nil {
			v.setStatus(err.Error())
		}
	}

	return false
}

// dispatch applies a command from the keyboard or a gamepad and reports
// whether the reader should exit.
func (v *terminalView) dispatch(c input.Command) bool {
	if v.session == nil {
		return c == input.Close
	}
	if err := v.session.Handle(c); err != nil {
		v.setStatus(err.Error())
	}

	return v.session.Closed()
}

func (v *terminalView) handleMouse(m mouseEvent) {
	if v.session == nil {
		return
	}

	width, height, err := term.GetSize(v.fd)
	if err != nil {
		return
	}
	x, y := float64(m.X-1), float64(m.Y-1)

	switch m.Action {
	case mousePress:
		if c, ok := v.pointer.Click(x, float64(width)); ok {
			if err := v.session.Handle(c); err != nil {
				v.setStatus(err.Error())
			}
			return
		}

		c, ok := v.pointer.DragZone(x, y, float64(width), float64(height))
		if !ok {
			return
		}
		dir := reader.Forward
		if c == input.PrevPage {
			dir = reader.Backward
		}
		if err := v.session.BeginDrag(dir, x, float64(width)); err != nil && !errors.Is(err, reader.ErrAtBoundary) {
			v.setStatus(err.Error())
		}

	case mouseMotion:
		_, _ = v.session.DragTo(x)

	case mouseRelease:
		if _, err := v.session.DragTo(x); err != nil {
			return
		}
		_, _ = v.session.Release()
		v.render(v.session)
	}
}

func (v *terminalView) setStatus(msg string) {
	v.status = msg
	if v.session != nil {
		v.render(v.session)
		return
	}
	fmt.Fprintf(v.out, "\r\x1b[2K%s", msg)
}

func (v *terminalView) render(s *reader.Session) {
	if s != v.session || s.Closed() {
		return
	}

	var sb strings.Builder
	sb.WriteString("\x1b[H\x1b[2J")

	title := v.book.Name
	if s.Content().Title != "" {
		title = s.Content().Title
	}
	line(&sb, "%s", title)
	line(&sb, "")

	if s.Total() == 0 {
		line(&sb, "  (no pages)")
	}
	for i, p := range s.Visible() {
		if p.IsBlank() {
			line(&sb, "  [%d] blank", i+1)
			continue
		}
		line(&sb, "  [%d] %s  %s", i+1, p.Kind, p.Locator)
	}

	if f := s.Flip(); f.Phase != reader.PhaseIdle {
		line(&sb, "")
		line(&sb, "  flip %s %s %3.0f%%  (%.0f deg)", f.Direction, f.Phase, f.Progress*100, f.Rotation())
	}

	if s.UIVisible() {
		p := s.Progress()
		line(&sb, "")
		line(&sb, "%s  (%d%%)  [%s]", p, p.Percent(), s.Mode())
		b := v.keys.Bindings()
		line(&sb, "%s back  %s forward  %s ui  %s info  N/P chapter  M mode  Esc close",
			input.KeyName(b.PrevPage), input.KeyName(b.NextPage), input.KeyName(b.ToggleInfo), input.KeyName(b.PageInfo))
	}

	if s.InfoVisible() {
		info := s.Info()
		line(&sb, "")
		line(&sb, "  Title:    %s", info.Title)
		line(&sb, "  Chapter:  %s", info.Chapter)
		line(&sb, "  Progress: %s", info.Progress)
	}

	if v.status != "" {
		line(&sb, "")
		line(&sb, "%s", v.status)
	}

	_, _ = io.WriteString(v.out, sb.String())
}

// line writes one row; raw mode needs explicit carriage returns.
func line(sb *strings.Builder, format string, args ...any) {
	fmt.Fprintf(sb, format, args...)
	sb.WriteString("\r\n")
}

func readTerminal(ctx context.Context, r io.Reader, out chan<- []termEvent) {
	defer close(out)

	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			evs := parseInput(append([]byte(nil), buf[:n]...))
			select {
			case out <- evs:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
