// Package ui provides terminal output components for the smartcast CLI.
//
// Components follow a "render once and print" pattern: they are plain lipgloss
// renderers, not interactive programs. The interactive wizard and the live
// dashboard live in internal/wizard/tui.
//
//   - Header: command banner showing the operation and target device
//   - Result: success, failure and warning boxes; failures pick up
//     troubleshooting hints from transport.DeviceError
//   - RenderTree: indented outline of a settings tree
//   - Confirm: yes/no prompt guarding device actions
//
// Printer ties these together and degrades to plain text when stdout is not a
// terminal, so command output stays pipeable.
//
// Logging is controlled separately through SMARTCAST_LOG_LEVEL; when unset zap
// is silent and only the curated output appears.
package ui
