package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"}
	colorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}
	colorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"}

	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(colorMuted).Width(10)
)

const (
	iconSuccess = "✔"
	iconError   = "✘"
	iconWarning = "⚠"
)

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, styleSuccess.Render(iconSuccess)+" "+msg)
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, styleWarning.Render(iconWarning)+" "+msg)
}

func printError(w io.Writer, msg string) {
	fmt.Fprintln(w, styleError.Render(iconError)+" "+msg)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintln(w, "  "+styleLabel.Render(label)+" "+value)
}
