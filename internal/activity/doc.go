// Package activity holds the activity event model and the bounded log that
// the dashboard's feed renders.
//
// Each operator command produces up to three events: the command as received
// by the copilot (running), and the result attributed to the agent that
// handled it (success) or the error (failed). The Store keeps the newest
// entries first and drops the oldest once its capacity is reached:
//
//	s := activity.NewStore(10)
//	s.Push(activity.NewEvent("QUOTE", "success", "quote ready", time.Time{}))
//	for _, ev := range s.Snapshot() { ... }
//
// Ordering is by insertion. The event timestamp is informational only.
package activity
