package emoji

import (
	"github.com/drakos74/signal-router/internal/model"
)

// https://unicode.org/emoji/charts/full-emoji-list.html
const (
	Wave     = "👋"
	Check    = "✅"
	Cross    = "❌"
	Warning  = "⚠️"
	Info     = "ℹ️"
	Wrench   = "🔧"
	Chart    = "📊"
	Up       = "📈"
	Down     = "📉"
	Money    = "💰"
	Target   = "🎯"
	Test     = "🧪"
	Calendar = "📅"
	Inbox    = "📥"
	Outbox   = "📤"
	Dollar   = "💵"
	Numbers  = "🔢"
	Receipt  = "🧾"
	Diamond  = "🔹"
	Trash    = "🗑"
	Error    = "🚫"
)

// MapType maps the type of buy and sell to an emoji
func MapType(t model.Type) string {
	switch t {
	case model.Buy:
		return Inbox
	case model.Sell:
		return Outbox
	}
	return Error
}

// MapToSign maps the given float value according to it's sign.
func MapToSign(f float64) string {
	if f < 0 {
		return Down
	}
	return Up
}

// MapBool maps a success flag.
func MapBool(s bool) string {
	if s {
		return Check
	}
	return Cross
}
