// Package ui provides terminal output components for the brewctl CLI.
//
// This package uses Lipgloss to render styled terminal output. Components
// follow a "run once and exit" pattern: they return strings and never take
// over the terminal.
//
// # Components
//
//   - Header: command banner showing the operation and the machine address
//   - Result: success, failure and warning boxes with sorted details
//   - RenderMachineState / RenderDisplayState: labelled record views
//   - RenderWireLine: one line of a console exchange with a checksum mark
//   - ConfirmDangerousOperation: "type I AGREE" prompt before memory writes
//
// Example:
//
//	fmt.Println(ui.NewHeader("Machine State", "brewctl machine kitchen",
//	    map[string]string{"Address": addr}).Render())
//	fmt.Println(ui.RenderMachineState(state))
//
// # Logging Integration
//
// This package expects logging to be controlled via the BREWLINK_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the styled output to be displayed cleanly.
//
// Lipgloss drops colour automatically when stdout is not a terminal, so the
// same renderers serve pipes and log files.
package ui
