package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/brogergvhs/tachi/internal/input"
	"github.com/brogergvhs/tachi/internal/settings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change reader settings (flip mode, hotkeys, controller mapping)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		printSettings(rt.settings)
		return nil
	},
}

var settingsFlipModeCmd = &cobra.Command{
	Use:       "flip-mode <corner|side|click>",
	Short:     "Choose how pointer input turns pages",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(input.FlipCorner), string(input.FlipSide), string(input.FlipClick)},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		if err := rt.settings.Update(func(s *settings.Settings) {
			s.FlipMode = input.FlipMode(args[0])
		}); err != nil {
			return err
		}

		fmt.Println("Flip mode:", args[0])
		return nil
	},
}

var settingsBindKeyCmd = &cobra.Command{
	Use:   "bind-key <action> <code>",
	Short: "Bind a key code (e.g. KeyA, ArrowRight) to prevPage, nextPage, toggleInfo or pageInfo",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, ok := input.ParseAction(args[0])
		if !ok {
			return fmt.Errorf("unknown action %q", args[0])
		}

		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		if err := rt.settings.Update(func(s *settings.Settings) {
			s.Hotkeys.Set(action, args[1])
		}); err != nil {
			return err
		}

		fmt.Printf("%s -> %s\n", action, input.KeyName(args[1]))
		return nil
	},
}

var settingsBindButtonCmd = &cobra.Command{
	Use:   "bind-button <action> <button>",
	Short: "Bind a gamepad button index to prevPage, nextPage, toggleInfo or pageInfo",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, ok := input.ParseAction(args[0])
		if !ok {
			return fmt.Errorf("unknown action %q", args[0])
		}

		button, err := strconv.Atoi(args[1])
		if err != nil || button < 0 {
			return fmt.Errorf("invalid button index %q", args[1])
		}

		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		if err := rt.settings.Update(func(s *settings.Settings) {
			s.ControllerMapping.Set(action, button)
		}); err != nil {
			return err
		}

		fmt.Printf("%s -> %s\n", action, input.ButtonName(button))
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default reader settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		if err := rt.settings.Reset(); err != nil {
			return err
		}

		fmt.Println("Settings reset:", rt.settings.Path())
		return nil
	},
}

func printSettings(store *settings.Store) {
	s := store.Get()

	fmt.Printf("Settings file: %s\n\n", store.Path())
	fmt.Printf("Flip mode: %s\n\n", s.FlipMode)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ACTION\tKEY\tBUTTON")
	for _, a := range input.Actions {
		key, button := bindingsFor(s, a)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a, input.KeyName(key), input.ButtonName(button))
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", input.Close, "Esc", "-")

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
	}
}

func bindingsFor(s settings.Settings, a input.Command) (string, int) {
	switch a {
	case input.PrevPage:
		return s.Hotkeys.PrevPage, s.ControllerMapping.PrevPage
	case input.NextPage:
		return s.Hotkeys.NextPage, s.ControllerMapping.NextPage
	case input.ToggleUI:
		return s.Hotkeys.ToggleInfo, s.ControllerMapping.ToggleInfo
	default:
		return s.Hotkeys.PageInfo, s.ControllerMapping.PageInfo
	}
}

func init() {
	settingsCmd.AddCommand(
		settingsFlipModeCmd,
		settingsBindKeyCmd,
		settingsBindButtonCmd,
		settingsResetCmd,
	)
	rootCmd.AddCommand(settingsCmd)
}
