// Package coordinator is the facade the rest of the console talks to when it
// records or observes activity.
//
// # Overview
//
// A Coordinator owns an activity.Store and an agentstatus.Tracker and keeps
// them consistent: every Record call appends to the log and, for worker
// agents, marks the agent active. Views never touch the store or tracker
// directly.
//
//	c := coordinator.New(coordinator.Config{Capacity: 10, Dwell: 4 * time.Second})
//	defer c.Close()
//
//	unsubscribe := c.Subscribe(func(u coordinator.Update) { render(u) })
//	defer unsubscribe()
//
//	c.Record(activity.AgentCopilot, "running", "health quote CUST0001")
//	c.Record("QUOTE", "success", "3 quotes found")
//
// # Notification
//
// Listeners are called synchronously, in registration order, after every
// Record and after the active agent expires. A panicking listener is logged
// and skipped. Streaming consumers use Watch, which adapts the same feed to
// a buffered channel.
//
// # Activation
//
// Events attributed to a meta-agent (COPILOT, SYSTEM) never mark an agent
// active. With ActivateResults, running events don't either.
package coordinator
