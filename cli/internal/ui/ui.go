// Package ui renders rwconn CLI output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// Success prints a success message.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func Error(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func Warning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Section prints a title with a muted subtitle.
func Section(w io.Writer, title, subtitle string) {
	if subtitle == "" {
		fmt.Fprintln(w, TitleStyle.Render(title))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render(title)+" "+SecondaryStyle.Render(subtitle))
}

// KeyValue prints an aligned key/value pair, the key in the label color.
func KeyValue(w io.Writer, key string, value any) {
	label := color.New(color.FgCyan)
	label.Fprintf(w, "%-10s", key)
	fmt.Fprintf(w, " %v\n", value)
}

// Table prints headers and rows as a table.
func Table(w io.Writer, headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	table := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data)
	return table.Render()
}

// Markdown renders markdown to w using the terminal's style.
func Markdown(w io.Writer, content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Mask hides a secret. An empty secret stays empty.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}
