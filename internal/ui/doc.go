// Package ui implements the terminal side of destructive operations: confirmation prompts and run summaries.
//
// Two [tasks.Confirmer] implementations are provided:
//  1. [TeaConfirmer] : a bubbletea program per question, answered with single keys (y/n/q) and
//     contextual help from charmbracelet/bubbles/help.
//  2. [LineConfirmer] : a plain line prompt for pipes and non-interactive shells, where only "y" or "yes" confirms.
//
// [RenderReport] renders a [tasks.Report] with the package's lipgloss palette.
package ui
