package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/dbus"
	"github.com/jmylchreest/popctl/internal/output"
	"github.com/jmylchreest/popctl/internal/popup"
)

// callTimeout bounds every D-Bus round trip.
const callTimeout = 5 * time.Second

func init() {
	for _, action := range []popup.Action{popup.ActionOpen, popup.ActionClose, popup.ActionToggle} {
		rootCmd.AddCommand(actionCommand(action))
	}
	rootCmd.AddCommand(stateCmd, listCmd, statusCmd, watchCmd)

	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "",
		"Output format (plain, table, json, waybar)")
}

// actionCommand builds the open, close and toggle subcommands.
func actionCommand(action popup.Action) *cobra.Command {
	name := action.String()
	return &cobra.Command{
		Use:   name + " <popup>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " a popup on the running bar",
		Long: fmt.Sprintf(`Ask the running bar to %s a popup.

The popup id may be abbreviated: it is matched fuzzily against the ids
the bar reports, and must resolve to a single best match.`, name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()

			client, err := dbus.Connect()
			if err != nil {
				return err
			}
			id, err := resolveID(ctx, client, args[0])
			if err != nil {
				return err
			}
			logger.Debug("sending popup action", "popup_id", id, "action", name)
			return client.Do(ctx, id, action)
		},
	}
}

var stateCmd = &cobra.Command{
	Use:   "state <popup>",
	Short: "Show a popup's lifecycle state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()

		client, err := dbus.Connect()
		if err != nil {
			return err
		}
		id, err := resolveID(ctx, client, args[0])
		if err != nil {
			return err
		}
		state, changed, err := client.State(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", id, state, output.Since(changed, time.Now()))
		return nil
	},
}

var listOpts struct {
	format string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the popups on the running bar",
	Long: `List every popup on the running bar with its current state.

Without --format the output is a styled table on a terminal and one
"id state" pair per line otherwise, so it can be piped into other tools.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := output.FormatType(listOpts.format)
		if format == "" {
			format = output.FormatPlain
			if term.IsTerminal(int(os.Stdout.Fd())) {
				format = output.FormatTable
			}
		}
		return printRows(cmd.Context(), format)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the number of open popups in Waybar's custom module JSON format.

  "custom/popctl": {
    "exec": "popctl status",
    "interval": 2,
    "return-type": "json"
  }

When the bar is not running the module shows nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := printRows(cmd.Context(), output.FormatWaybar); err != nil {
			logger.Debug("bar unavailable", "error", err)
			return json.NewEncoder(os.Stdout).Encode(output.WaybarStatus{Alt: "offline", Class: "offline"})
		}
		return nil
	},
}

// printRows queries every popup and writes them in format.
func printRows(ctx context.Context, format output.FormatType) error {
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	ids, err := client.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]output.Row, 0, len(ids))
	for _, id := range ids {
		state, changed, err := client.State(ctx, id)
		if err != nil {
			logger.Warn("failed to query popup state", "popup_id", id, "error", err)
			continue
		}
		rows = append(rows, output.Row{ID: id, State: state, Changed: changed})
	}
	return formatter.Format(os.Stdout, rows)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print popup state changes as they happen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := dbus.Connect()
		if err != nil {
			return err
		}
		changes, err := client.Watch(ctx)
		if err != nil {
			return err
		}
		for change := range changes {
			fmt.Printf("%s\t%s\t%s\n", time.Now().Format("15:04:05.000"), change.ID, change.State)
		}
		return nil
	},
}

// resolveID maps an abbreviated popup id onto one the bar knows.
func resolveID(ctx context.Context, client *dbus.Client, query string) (string, error) {
	ids, err := client.List(ctx)
	if err != nil {
		return "", err
	}
	return matchID(query, ids)
}

// matchID prefers an exact id, then the single best fuzzy match.
func matchID(query string, ids []string) (string, error) {
	for _, id := range ids {
		if id == query {
			return id, nil
		}
	}
	matches := fuzzy.Find(query, ids)
	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("%w: %q", config.ErrUnknownPopup, query)
	case len(matches) == 1 || matches[0].Score > matches[1].Score:
		return matches[0].Str, nil
	}

	var candidates []string
	for _, m := range matches {
		if m.Score == matches[0].Score {
			candidates = append(candidates, m.Str)
		}
	}
	return "", fmt.Errorf("popup %q is ambiguous: %s", query, strings.Join(candidates, ", "))
}
