package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/popup"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the config file",
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a config file without starting anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok, %d popups\n", path, len(c.Popups))
		for _, p := range c.Popups {
			pc, err := p.PopupConfig()
			if err != nil {
				return err
			}
			fmt.Printf("  %-12s %-14s %s\n", p.ID, pc.Trigger, pc.Delay)
		}
		return nil
	},
}

var initOpts struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively write a starter config file",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateCmd, initCmd)

	initCmd.Flags().BoolVar(&initOpts.force, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !initOpts.force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	c := config.DefaultConfig()
	var (
		position = c.Display.BarPosition
		trigger  = c.Popups[0].Trigger
		delay    = strconv.FormatInt(c.Popups[0].Delay.Duration().Milliseconds(), 10)
		scheme   = c.Theme.ColorScheme
		sounds   = c.Audio.Enabled
	)

	triggers := make([]huh.Option[string], 0, 5)
	for _, t := range popup.ValidTriggers() {
		triggers = append(triggers, huh.NewOption(t.String(), t.String()))
	}
	schemes := make([]huh.Option[string], 0, 3)
	for _, s := range config.ValidColorSchemes() {
		schemes = append(schemes, huh.NewOption(string(s), string(s)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Bar position").
				Options(huh.NewOptions("top", "bottom")...).
				Value(&position),
			huh.NewSelect[string]().
				Title("Trigger").
				Description("Applied to every starter popup").
				Options(triggers...).
				Value(&trigger),
			huh.NewInput().
				Title("Delay in milliseconds").
				Value(&delay).
				Validate(func(s string) error {
					ms, err := strconv.Atoi(s)
					if err != nil || ms < 0 {
						return errors.New("enter a whole number of milliseconds")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color scheme").
				Options(schemes...).
				Value(&scheme),
			huh.NewConfirm().
				Title("Play sounds when popups open and close?").
				Value(&sounds),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	ms, _ := strconv.Atoi(delay)
	c.Display.BarPosition = position
	c.Theme.ColorScheme = scheme
	c.Audio.Enabled = sounds
	for i := range c.Popups {
		c.Popups[i].Trigger = trigger
		c.Popups[i].Delay = config.Duration(time.Duration(ms) * time.Millisecond)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
