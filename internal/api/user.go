package api

import (
	"context"
)

// Index identifies a recipient of user messages.
type Index string

const (
	// Operator is the default recipient for engine reports.
	Operator Index = "operator"
)

// ConsumerKey is the internal consumer key for indexing and managing consumers.
type ConsumerKey struct {
	Key    string
	Prefix string
}

// User defines an external interface for exchanging information and sharing control with the user(s)
type User interface {
	// Run starts the user interface implementation and initialises any external connections.
	Run(ctx context.Context) error
	// Listen returns a channel of commands to the caller to interact with the user.
	// the caller needs to provide a unique subscription key.
	// additionally the caller can define a prefix to avoid being spammed with messages not relevant to them.
	Listen(key, prefix string) <-chan Command
	// Send sends a message to the user and returns the message ID.
	// Delivery is best-effort, failures are logged by the implementation.
	Send(index Index, message *Message) int
	// AddUser registers a recipient for the given index.
	AddUser(index Index, chatID int64) error
}
