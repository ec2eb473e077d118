// Package tui provides terminal user interface components for fixture-ctl.
//
// This package uses the Bubble Tea framework to create interactive terminal
// interfaces, primarily the fixture picker used by `fixture-ctl pick`.
//
// # Fixture Picker
//
// The picker lists fixtures grouped by validity and allows selection:
//
//	result, err := tui.RunPicker(entries)
//	switch result.Action {
//	case tui.ActionValidate:
//	    // Show the full report for result.Fixture
//	case tui.ActionLoad:
//	    // Load result.Fixture into result.Namespace
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// # Picker Features
//
//   - Valid fixtures first, invalid ones below, headers auto-skipped
//   - Keyboard navigation (j/k or arrows)
//   - Quick actions: Enter (validate), l (load, prompts for namespace), q (quit)
//   - Color-coded status indicators
//
// # Validation Report
//
// RenderReport formats a validator.ValidationResult with lipgloss styles,
// or as plain text when color is disabled.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
