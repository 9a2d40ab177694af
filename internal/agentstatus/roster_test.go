// ABOUTME: Tests for roster badge rendering
// ABOUTME: Verifies idle defaults, case-insensitive matching and off-roster agents

package agentstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoster_BadgesIdleWhenNone(t *testing.T) {
	badges := DefaultRoster.Badges(None)

	assert.Len(t, badges, len(DefaultRoster))
	for i, b := range badges {
		assert.Equal(t, DefaultRoster[i], b.Agent)
		assert.False(t, b.Active)
		assert.True(t, b.Known)
	}
}

func TestRoster_BadgesMarkCurrent(t *testing.T) {
	badges := DefaultRoster.Badges("policy")

	var active []string
	for _, b := range badges {
		if b.Active {
			active = append(active, b.Agent)
		}
	}
	assert.Equal(t, []string{"POLICY"}, active)
	assert.Len(t, badges, len(DefaultRoster))
}

func TestRoster_BadgesAppendUnknownActive(t *testing.T) {
	badges := DefaultRoster.Badges("SUPERVISOR")

	assert.Len(t, badges, len(DefaultRoster)+1)
	last := badges[len(badges)-1]
	assert.Equal(t, Badge{Agent: "SUPERVISOR", Active: true, Known: false}, last)
}

func TestRoster_Contains(t *testing.T) {
	assert.True(t, DefaultRoster.Contains("crm"))
	assert.False(t, DefaultRoster.Contains("COPILOT"))
	assert.False(t, Roster(nil).Contains("QUOTE"))
}
