// Package viz renders mechanisms and solve histories in the terminal.
//
//   - [Canvas]: Braille pixel canvas, 2x4 dots per cell
//   - [Camera] and [Wireframe]: perspective projection of frames, body links
//     and joints taken from a pose snapshot
//   - [Player]: Bubble Tea program that replays a [sim.History] step by step
//   - [RunSummary]: lipgloss panel printed after a run
//
// # Player Key Bindings
//
//	Space   - Play/Pause
//	←/→     - Previous/next step
//	Home/End - First/last step
//	x y z   - Rotate camera (shift reverses)
//	+/-     - Zoom
//	f       - Refit camera
//	t       - Cycle color themes
//	?       - Show help
package viz
