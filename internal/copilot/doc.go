// Package copilot implements the operator command flow.
//
// A Service takes a Command from the dashboard, the CLI or the TUI, drops
// empty, duplicate and rate-limited submissions, and sends the rest to the
// backend. Each accepted command produces activity events on the Recorder:
//
//	COPILOT running  <command text>
//	COPILOT running  Dispatching to agents
//	<AGENT> success  <response>      or      SYSTEM failed  <error>
//
// The Service also keeps the chat transcript shown next to the activity feed.
package copilot
