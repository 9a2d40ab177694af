// Package server assembles the copilot console from configuration and runs
// its HTTP listener.
//
// New wires the coordinator, the backend client, the command service and the
// dashboard. Run blocks until the context is canceled, then shuts down with a
// five second grace period.
package server
