// ABOUTME: Fixed roster of recognised agents rendered by the agents view
// ABOUTME: Produces active/idle badges so agents never seen still show as idle

package agentstatus

import "strings"

// Roster lists the agents the dashboard always displays.
type Roster []string

// DefaultRoster matches the task types the backend supervisor routes to.
var DefaultRoster = Roster{"QUOTE", "POLICY", "REMINDER", "CRM"}

// Badge is one row of the agents view.
type Badge struct {
	Agent  string `json:"agent"`
	Active bool   `json:"active"`
	// Known is false for an active agent that is not on the roster.
	Known bool `json:"known"`
}

// Contains reports whether agent is on the roster, ignoring case.
func (r Roster) Contains(agent string) bool {
	for _, name := range r {
		if strings.EqualFold(name, agent) {
			return true
		}
	}
	return false
}

// Badges returns one badge per roster agent, marking current as active.
// An active agent missing from the roster is appended as an unknown badge.
func (r Roster) Badges(current string) []Badge {
	badges := make([]Badge, 0, len(r)+1)
	matched := false
	for _, name := range r {
		active := current != None && strings.EqualFold(name, current)
		if active {
			matched = true
		}
		badges = append(badges, Badge{Agent: name, Active: active, Known: true})
	}
	if !matched && current != "" && current != None {
		badges = append(badges, Badge{Agent: current, Active: true})
	}
	return badges
}
