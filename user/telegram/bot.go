package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot defines the telegram bot api.User implementation.
// It only accepts commands from the configured chat.
type Bot struct {
	bot       botAPI
	chatID    int64
	chats     map[api.Index]int64
	consumers map[api.ConsumerKey]chan api.Command
	lock      *sync.RWMutex
}

// NewBot creates a new telegram bot for the given operator chat.
func NewBot(token string, chatID int64) (*Bot, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("missing chat ID: %w", model.ValidationErr)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	bot.Buffer = 0
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorised")
	return newBot(bot, chatID), nil
}

func newBot(bot botAPI, chatID int64) *Bot {
	return &Bot{
		bot:       bot,
		chatID:    chatID,
		chats:     map[api.Index]int64{api.Operator: chatID},
		consumers: make(map[api.ConsumerKey]chan api.Command),
		lock:      new(sync.RWMutex),
	}
}

// Run starts the Bot and polls for updates from telegram.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10

	updates, err := b.bot.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("could not get updates: %w", err)
	}

	go b.listenToUpdates(ctx, updates)
	return nil
}

// Listen exposes a channel to the caller with updates for the given prefix.
func (b *Bot) Listen(key, prefix string) <-chan api.Command {
	b.lock.Lock()
	defer b.lock.Unlock()
	ch := make(chan api.Command)
	b.consumers[api.ConsumerKey{
		Key:    key,
		Prefix: prefix,
	}] = ch
	return ch
}

// AddUser registers the chat for the given index.
func (b *Bot) AddUser(index api.Index, chatID int64) error {
	if chatID == 0 {
		return fmt.Errorf("invalid chat ID for '%s': %w", index, model.ValidationErr)
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.chats[index] = chatID
	return nil
}

// Send sends the given message to the chat of the index.
// Unknown indexes fall back to the operator chat.
func (b *Bot) Send(index api.Index, message *api.Message) int {
	msg := tgbotapi.NewMessage(b.chat(index), message.Text)
	if message.Reply > 0 {
		msg.ReplyToMessageID = message.Reply
	}
	sent, err := b.bot.Send(msg)
	if err != nil {
		log.Err(err).Str("index", string(index)).Msg("could not send message")
		return 0
	}
	return sent.MessageID
}

func (b *Bot) chat(index api.Index) int64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if chatID, ok := b.chats[index]; ok {
		return chatID
	}
	return b.chatID
}
