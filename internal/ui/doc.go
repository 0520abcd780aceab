// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI wraps a transfer run in a three-view workflow:
//  1. [ConfirmView] : Review the source and target accounts before starting
//  2. [TransferView] : Monitor real-time progress with a progress bar
//  3. [ResultView] : Display the run report and any failed items
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Progress updates flow through a channel from the transfer engine, so the
// view stays responsive while favorites are fetched and replicated.
//
// Keyboard navigation uses vim-style bindings (y/n, q) with contextual help
// displayed via charmbracelet/bubbles/help. Pressing q during a transfer
// requests a cooperative stop; the engine finishes the item in flight and
// reports a partial result.
package ui
