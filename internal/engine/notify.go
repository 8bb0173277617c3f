package engine

import (
	"fmt"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/rs/zerolog/log"
)

// NotificationQueue is the number of operator messages that can wait for delivery.
const NotificationQueue = 64

type notification struct {
	index   api.Index
	message *api.Message
}

// notifier delivers the operator messages in order, on its own goroutine.
// When the queue is full the message is dropped and logged.
type notifier struct {
	user     api.User
	messages chan notification
}

func newNotifier(user api.User, size int) *notifier {
	n := &notifier{
		user:     user,
		messages: make(chan notification, size),
	}
	go n.run()
	return n
}

func (n *notifier) run() {
	for m := range n.messages {
		n.send(m)
	}
}

func (n *notifier) send(m notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("index", string(m.index)).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("could not send notification")
		}
	}()
	n.user.Send(m.index, m.message)
}

// notify queues the message without waiting for the delivery.
func (n *notifier) notify(index api.Index, message *api.Message) bool {
	select {
	case n.messages <- notification{index: index, message: message}:
		return true
	default:
		log.Warn().
			Str("index", string(index)).
			Str("text", message.Text).
			Msg("notification queue full, message dropped")
		return false
	}
}
