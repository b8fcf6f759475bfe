// Package event defines the auth domain events exchanged over the message
// broker and the publisher/consumer that move them.
package event

// Event type tags carried in AuthEvent.Type.
const (
	TypeUserRegistered  = "user.registered"
	TypePasswordChanged = "password.changed"
)

// QueueName is the broker queue all auth events are published to.
const QueueName = "auth.events"

// AuthEvent is published when an account is created or its password
// changes.  It carries enough information for downstream consumers to log
// or notify without querying the primary database.
type AuthEvent struct {
	Type       string `json:"type"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Provider   string `json:"provider,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
