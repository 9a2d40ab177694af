// Package agentstatus tracks which agent is currently working so the
// dashboard can badge it as active. Only one agent is active at a time and
// it falls back to idle after a dwell period with no further activity.
package agentstatus
