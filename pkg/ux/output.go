// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the ChatMate CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ChatMate color palette - warm violets with a mint accent
var (
	ColorViolet       = lipgloss.Color("#8B7CF6") // Primary brand color
	ColorVioletBright = lipgloss.Color("#A995FF") // Highlights
	ColorVioletDeep   = lipgloss.Color("#6D5BD0") // Borders, accents
	ColorMint         = lipgloss.Color("#3DDBB4") // Success, assistant accent
	ColorSlate        = lipgloss.Color("#55596B") // Muted text
	ColorWarning      = lipgloss.Color("#F4D03F") // Gold for warnings
	ColorError        = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorVioletBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorMint),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	User:      lipgloss.NewStyle().Bold(true).Foreground(ColorViolet),
	Assistant: lipgloss.NewStyle().Bold(true).Foreground(ColorMint),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorVioletDeep).
		Padding(0, 1),
}

// InteractiveTerminal reports whether stdout is a TTY. Callers use it
// to decide between styled interactive output and plain piped output.
func InteractiveTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Title prints a styled title line.
func Title(text string) {
	fmt.Println(Styles.Title.Render(text))
}

// Info prints an informational line with a muted gutter.
func Info(text string) {
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text.
func Muted(text string) {
	fmt.Println(Styles.Muted.Render(text))
}

// Success prints a success line with a checkmark.
func Success(text string) {
	fmt.Printf("%s %s\n", Styles.Success.Render("✓"), text)
}

// Warning prints a warning line to stdout.
func Warning(text string) {
	fmt.Printf("%s %s\n", Styles.Warning.Render("⚠"), text)
}

// Error prints an error line to stderr.
func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Styles.Error.Render("✗"), text)
}

// UserPrompt returns the styled prompt shown before user input.
func UserPrompt() string {
	return Styles.User.Render("you ›") + " "
}

// AssistantLabel returns the styled label shown before a reply.
func AssistantLabel() string {
	return Styles.Assistant.Render("chatmate ›") + " "
}

// Box prints content in a rounded box under a title.
func Box(title, content string) {
	boxStyle := Styles.Box.Width(60)
	fmt.Println(boxStyle.Render(Styles.Title.Render(title) + "\n" + content))
}
