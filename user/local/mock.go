package local

import (
	"fmt"
	"strings"
	"time"

	"github.com/drakos74/signal-router/internal/api"
)

// MockUser lets tests inject commands and consume the replies as they are sent.
type MockUser struct {
	*User
	Messages chan Sent
	count    int
}

// NewMockUser creates a new mock user.
func NewMockUser() *MockUser {
	user, _ := NewUser("")
	return &MockUser{
		User:     user,
		Messages: make(chan Sent, 100),
	}
}

// MockMessage delivers the text as a command to all consumers with a matching prefix.
func (m *MockUser) MockMessage(s string, user string) bool {
	m.lock.Lock()
	m.count++
	id := m.count
	consumers := make([]chan api.Command, 0)
	for k, c := range m.consumers {
		if strings.HasPrefix(s, k.Prefix) {
			consumers = append(consumers, c)
		}
	}
	m.lock.Unlock()
	for _, c := range consumers {
		c <- api.ParseCommand(id, user, s)
	}
	return len(consumers) > 0
}

// MustMockMessage is like MockMessage but panics if no consumer received the command.
func (m *MockUser) MustMockMessage(s string, user string) {
	if !m.MockMessage(s, user) {
		panic(fmt.Sprintf("could not send message: %s", s))
	}
}

func (m *MockUser) Send(index api.Index, message *api.Message) int {
	id := m.User.Send(index, message)
	m.Messages <- Sent{Index: index, Message: *message}
	return id
}

// Next returns the next sent message or an error after the timeout.
func (m *MockUser) Next(timeout time.Duration) (Sent, error) {
	select {
	case msg := <-m.Messages:
		return msg, nil
	case <-time.After(timeout):
		return Sent{}, fmt.Errorf("no message after %v", timeout)
	}
}
