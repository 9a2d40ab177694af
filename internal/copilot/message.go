// ABOUTME: Chat transcript message types for the copilot conversation
// ABOUTME: Defines roles and the welcome message shown before the first command

package copilot

import "time"

// Role identifies who a transcript message came from.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleError Role = "error"
)

// WelcomeMessage opens every transcript.
const WelcomeMessage = "Hello! I'm your AI insurance copilot. I can help you analyze policies, " +
	"process claims, update customer information, and automate workflows. " +
	"How can I assist you today?\n" +
	"Try: 'health quote CUST0001' | 'policy POL1001' | 'send reminders' | 'update CUST0001 phone 9876543210'"

// Message is one chat transcript entry.
type Message struct {
	ID      string    `json:"id"`
	Role    Role      `json:"role"`
	Agent   string    `json:"agent,omitempty"`
	Content string    `json:"content"`
	Time    time.Time `json:"timestamp"`
}

// Clock formats the message time as hour and minute.
func (m Message) Clock() string {
	return m.Time.Format("3:04 PM")
}
