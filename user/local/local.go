package local

import (
	"context"
	"os"
	"sync"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/rs/zerolog"
)

const local = "local"

// Sent is a message sent to a recipient.
type Sent struct {
	Index   api.Index
	Message api.Message
}

// User is a headless user that logs and records the messages.
type User struct {
	logger    *zerolog.Logger
	consumers map[api.ConsumerKey]chan api.Command
	messages  []Sent
	lock      *sync.RWMutex
}

// NewUser creates a new local user, logging messages to the given file if any.
func NewUser(l string) (*User, error) {
	var logger *zerolog.Logger
	if l != "" {
		file, err := os.OpenFile(l, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
		lg := zerolog.New(file).With().Timestamp().Str("user", local).Logger()
		logger = &lg
	}

	return &User{
		logger:    logger,
		consumers: make(map[api.ConsumerKey]chan api.Command),
		messages:  make([]Sent, 0),
		lock:      new(sync.RWMutex),
	}, nil
}

func (v *User) Run(ctx context.Context) error {
	return nil
}

func (v *User) Listen(key, prefix string) <-chan api.Command {
	v.lock.Lock()
	defer v.lock.Unlock()
	ch := make(chan api.Command)
	v.consumers[api.ConsumerKey{
		Key:    key,
		Prefix: prefix,
	}] = ch
	return ch
}

func (v *User) Send(index api.Index, message *api.Message) int {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.logger != nil {
		v.logger.Info().
			Str("index", string(index)).
			Int("reply", message.Reply).
			Time("time", message.Time).
			Msg(message.Text)
	}
	v.messages = append(v.messages, Sent{Index: index, Message: *message})
	return len(v.messages)
}

func (v *User) AddUser(index api.Index, chatID int64) error {
	return nil
}

// History returns the messages sent so far.
func (v *User) History() []Sent {
	v.lock.RLock()
	defer v.lock.RUnlock()
	mm := make([]Sent, len(v.messages))
	copy(mm, v.messages)
	return mm
}
