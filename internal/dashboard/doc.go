// Package dashboard serves the operator console over HTTP.
//
// # Routes
//
// Public:
//
//	GET  /                     full page: chat, agent roster, activity feed
//	GET  /static/...           stylesheet and script
//	GET  /health               liveness
//	GET  /health/ready         503 while the backend circuit breaker is open
//
// Behind bearer auth when a JWT secret is configured:
//
//	GET  /partials/activity    activity feed fragment
//	GET  /partials/agents      roster fragment
//	GET  /partials/chat        chat transcript fragment
//	POST /api/command          submit a command ({"message": "..."})
//	GET  /api/activity         activity log, newest first
//	GET  /api/agents           active agent and roster badges
//	GET  /api/chat             chat transcript
//	GET  /api/events           SSE stream of coordinator updates
//
// The page script subscribes to /api/events and re-fetches the fragments on
// every "update" event. Agent replies are rendered from markdown.
package dashboard
