package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drakos74/signal-router/internal/api"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

// consumerTimeout is the time a consumer has to pick up a command.
var consumerTimeout = 1 * time.Second

// listenToUpdates listens to updates for the telegram bot.
func (b *Bot) listenToUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				log.Info().Msg("updates closed")
				return
			}
			if update.Message == nil { // ignore any non-Message Updates
				continue
			}
			b.dispatch(update.Message)
		case <-ctx.Done():
			log.Info().Msg("closing bot")
			return
		}
	}
}

func (b *Bot) dispatch(message *tgbotapi.Message) {
	var user string
	if message.From != nil {
		user = message.From.UserName
	}
	var chatID int64
	if message.Chat != nil {
		chatID = message.Chat.ID
	}
	if chatID != b.chatID {
		log.Warn().
			Str("from", user).
			Int64("chat", chatID).
			Msg("ignoring message from unauthorised chat")
		return
	}
	log.Info().
		Str("from", user).
		Str("text", message.Text).
		Int64("chat", chatID).
		Msg("message received")

	command := api.ParseCommand(message.MessageID, user, message.Text)
	command.ChatID = chatID

	b.lock.RLock()
	consumers := make(map[api.ConsumerKey]chan api.Command, len(b.consumers))
	for k, c := range b.consumers {
		consumers[k] = c
	}
	b.lock.RUnlock()

	for k, consumer := range consumers {
		if !strings.HasPrefix(command.Content, k.Prefix) {
			continue
		}
		select {
		case consumer <- command:
		case <-time.After(consumerTimeout):
			log.Warn().
				Str("consumer", fmt.Sprintf("%+v", k)).
				Str("command", command.Content).
				Msg("consumer did not receive command")
		}
	}
}
