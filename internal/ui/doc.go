// Package ui renders pass summaries, playlist tables, and history listings for the terminal.
//
// Styling uses a small lipgloss [Palette]. When output is not a terminal lipgloss drops the escape codes, so the
// same strings are safe to pipe or redirect.
package ui
