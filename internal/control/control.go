package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/emoji"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/drakos74/signal-router/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// Key is the consumer key of the control commands.
	Key = "control"
	// Prefix is the prefix of all control commands.
	Prefix = "/"
	// DateLayout is the expected date format for test orders.
	DateLayout = "2006-01-02"
)

const (
	startCmd     = "/start"
	setCmd       = "/set"
	showCmd      = "/show"
	testOrderCmd = "/test_order"
	unsetCmd     = "/unset"
)

var usage = map[string]string{
	setCmd:       "/set TICKER AMOUNT PROFIT",
	testOrderCmd: "/test_order TICKER BUY/SELL PRICE QTY DATE",
	unsetCmd:     "/unset TICKER",
}

// Store holds the ticker configuration managed by the operator.
type Store interface {
	Set(ticker string, orderSizeUSD, minProfitPercent float64) (model.TickerConfig, error)
	Delete(ticker string) error
	List() []model.TickerConfig
}

// Control handles the operator commands for the ticker configuration.
type Control struct {
	store    Store
	user     api.User
	index    api.Index
	commands <-chan api.Command
}

// New creates a new control plane and subscribes to the user commands.
func New(store Store, user api.User) *Control {
	return &Control{
		store:    store,
		user:     user,
		index:    api.Operator,
		commands: user.Listen(Key, Prefix),
	}
}

// Run processes commands until the context is done or the user stops sending.
func (c *Control) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case command, ok := <-c.commands:
			if !ok {
				return
			}
			c.handle(command)
		}
	}
}

func (c *Control) handle(command api.Command) {
	var reply string
	var err error
	exec := command.Exec()
	switch exec {
	case startCmd:
		reply = c.start()
	case setCmd:
		reply, err = c.set(command)
	case showCmd:
		reply = c.show()
	case testOrderCmd:
		reply, err = c.testOrder(command)
	case unsetCmd:
		reply, err = c.unset(command)
	default:
		log.Debug().Str("command", command.Content).Msg("ignoring unknown command")
		return
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("text", command.Content).
			Str("user", command.User).
			Msg("could not process user message")
		reply = failure(exec, err)
	}
	c.user.Send(c.index, api.NewMessage(reply).ReplyTo(command.ID))
}

func failure(exec string, err error) string {
	if errors.Is(err, model.ValidationErr) {
		return fmt.Sprintf("%s Usage: %s", emoji.Cross, usage[exec])
	}
	return fmt.Sprintf("%s %s failed: %s", emoji.Cross, exec, err.Error())
}

func (c *Control) start() string {
	return strings.Join([]string{
		fmt.Sprintf("%s Welcome to the Signal Router!", emoji.Wave),
		"",
		"Use these commands to get started:",
		fmt.Sprintf("%s /set TICKER AMOUNT PROFIT%% → Set trade config", emoji.Wrench),
		fmt.Sprintf("%s /show → View all configured tickers", emoji.Chart),
		fmt.Sprintf("%s /test_order TICKER BUY/SELL PRICE QTY DATE(YYYY-MM-DD) → Simulate test trade", emoji.Test),
		fmt.Sprintf("%s /unset TICKER → Remove trade config", emoji.Trash),
	}, "\n")
}

func (c *Control) set(command api.Command) (string, error) {
	var ticker model.Ticker
	var amount, profit float64
	_, err := command.Validate(
		api.AnyUser(),
		api.Contains(setCmd),
		api.Ticker(&ticker),
		api.Float(&amount),
		api.Float(&profit),
	)
	if err != nil {
		return "", err
	}
	cfg, err := c.store.Set(string(ticker), amount, profit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s Config saved:\n%s %s\n%s $%v\n%s Profit Target: %v%%",
		emoji.Check,
		emoji.Up, cfg.Ticker,
		emoji.Money, cfg.OrderSizeUSD,
		emoji.Target, cfg.MinProfitPercent), nil
}

func (c *Control) show() string {
	configs := c.store.List()
	if len(configs) == 0 {
		return fmt.Sprintf("%s No tickers configured yet.", emoji.Warning)
	}
	lines := []string{fmt.Sprintf("%s Current Configurations:", emoji.Chart)}
	for _, cfg := range configs {
		lines = append(lines, fmt.Sprintf("%s %s: $%v @ %v%% profit",
			emoji.Diamond, cfg.Ticker, cfg.OrderSizeUSD, cfg.MinProfitPercent))
	}
	return strings.Join(lines, "\n")
}

func (c *Control) testOrder(command api.Command) (string, error) {
	var ticker model.Ticker
	var side string
	var price float64
	var qty int
	var date time.Time
	_, err := command.Validate(
		api.AnyUser(),
		api.Contains(testOrderCmd),
		api.Ticker(&ticker),
		api.OneOf(&side, "BUY", "SELL"),
		api.Float(&price),
		api.Int(&qty),
		api.Date(&date, DateLayout),
	)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		fmt.Sprintf("%s Test Order Simulation:", emoji.Test),
		fmt.Sprintf("%s Date: %s", emoji.Calendar, date.Format(DateLayout)),
		fmt.Sprintf("%s Ticker: %s", emoji.Up, ticker),
		fmt.Sprintf("%s Type: %s", emoji.Inbox, side),
		fmt.Sprintf("%s Price: $%.2f", emoji.Dollar, price),
		fmt.Sprintf("%s Quantity: %d", emoji.Numbers, qty),
		fmt.Sprintf("%s Total: $%.2f", emoji.Receipt, price*float64(qty)),
	}, "\n"), nil
}

func (c *Control) unset(command api.Command) (string, error) {
	var ticker model.Ticker
	_, err := command.Validate(
		api.AnyUser(),
		api.Contains(unsetCmd),
		api.Ticker(&ticker),
	)
	if err != nil {
		return "", err
	}
	err = c.store.Delete(string(ticker))
	if errors.Is(err, storage.NotFoundErr) {
		return fmt.Sprintf("%s %s is not configured.", emoji.Warning, ticker), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s Config removed: %s", emoji.Trash, ticker), nil
}
