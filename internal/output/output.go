// Package output formats popup state listings for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Row is one popup as reported by the running bar.
type Row struct {
	ID      string
	State   popup.State
	Changed time.Time
}

// Formatter writes rows.
type Formatter interface {
	Format(w io.Writer, rows []Row) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain  FormatType = "plain"
	FormatTable  FormatType = "table"
	FormatJSON   FormatType = "json"
	FormatWaybar FormatType = "waybar"
)

// ValidFormats returns every format name.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatTable, FormatJSON, FormatWaybar}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatPlain:
		return PlainFormatter{}, nil
	case FormatTable:
		return TableFormatter{Now: time.Now}, nil
	case FormatJSON:
		return JSONFormatter{}, nil
	case FormatWaybar:
		return WaybarFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q, must be one of: %v", format, ValidFormats())
}

// PlainFormatter writes "id state" per line.
type PlainFormatter struct{}

// Format implements Formatter.
func (PlainFormatter) Format(w io.Writer, rows []Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s %s\n", r.ID, r.State); err != nil {
			return err
		}
	}
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// TableFormatter writes an aligned, colored table for terminals.
type TableFormatter struct {
	Now func() time.Time
}

// Format implements Formatter.
func (f TableFormatter) Format(w io.Writer, rows []Row) error {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	idWidth := len("POPUP")
	for _, r := range rows {
		idWidth = max(idWidth, len(r.ID))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %-8s  %s", idWidth, "POPUP", "STATE", "CHANGED")))
	b.WriteByte('\n')
	for _, r := range rows {
		state := fmt.Sprintf("%-8s", r.State)
		switch r.State {
		case popup.StateOpen:
			state = openStyle.Render(state)
		case popup.StateIdle:
			state = idleStyle.Render(state)
		default:
			state = busyStyle.Render(state)
		}
		fmt.Fprintf(&b, "%-*s  %s  %s\n", idWidth, r.ID, state, Since(r.Changed, now()))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Since formats a state change time relative to now.
func Since(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

type jsonRow struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Changed string `json:"changed,omitempty"`
}

// JSONFormatter writes rows as a JSON array.
type JSONFormatter struct{}

// Format implements Formatter.
func (JSONFormatter) Format(w io.Writer, rows []Row) error {
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = jsonRow{ID: r.ID, State: r.State.String()}
		if !r.Changed.IsZero() {
			out[i].Changed = r.Changed.UTC().Format(time.RFC3339Nano)
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// WaybarFormatter writes a single Waybar status object summarizing rows.
type WaybarFormatter struct{}

// Format implements Formatter.
func (WaybarFormatter) Format(w io.Writer, rows []Row) error {
	return json.NewEncoder(w).Encode(Status(rows))
}

// Status summarizes rows: the text counts open popups and the class is
// "active" while any popup is not idle.
func Status(rows []Row) WaybarStatus {
	var open, busy []string
	for _, r := range rows {
		switch r.State {
		case popup.StateOpen:
			open = append(open, r.ID)
		case popup.StateIdle:
		default:
			busy = append(busy, r.ID+" ("+r.State.String()+")")
		}
	}

	if len(open) == 0 && len(busy) == 0 {
		return WaybarStatus{Text: "", Alt: "idle", Tooltip: "No popups open", Class: "idle"}
	}

	var lines []string
	if len(open) > 0 {
		lines = append(lines, "Open: "+strings.Join(open, ", "))
	}
	lines = append(lines, busy...)
	return WaybarStatus{
		Text:    fmt.Sprintf("%d", len(open)),
		Alt:     "active",
		Tooltip: strings.Join(lines, "\n"),
		Class:   "active",
	}
}
