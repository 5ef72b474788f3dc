// Package notify sends position lifecycle events to an operator channel.
// Grounded on bot/telegram.go's TelegramBot: same tgbotapi wiring and
// send-with-markdown idiom, narrowed to the discretionary engine's event
// set (position opened, phase transition, fill, closed, error) instead of
// a full command-and-control surface.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/kestrelquant/execengine/model"
)

// Sink receives position lifecycle notifications.
type Sink interface {
	PositionOpened(spec model.PositionSpec, positionID string)
	PhaseTransition(positionID string, phase string)
	Fill(positionID string, symbol model.Symbol, side model.Side, qty, notional float64)
	PositionClosed(positionID string, executedNotional float64)
	Error(positionID string, err error)
}

// Telegram is a Sink backed by a bot token and a single chat id, matching
// the [telegram] section of the TOML config.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("notify: telegram bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: creating telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("⚠️ telegram send failed")
	}
}

func (t *Telegram) PositionOpened(spec model.PositionSpec, positionID string) {
	t.send(fmt.Sprintf("🟢 *Position opened*\nasset: `%s`\nside: `%s`\nsize: `%.2f USDT`\nid: `%s`",
		spec.Asset, spec.Side, spec.SizeUSDT, positionID))
}

func (t *Telegram) PhaseTransition(positionID string, phase string) {
	t.send(fmt.Sprintf("🔄 *Phase transition*\nid: `%s`\nphase: `%s`", positionID, phase))
}

func (t *Telegram) Fill(positionID string, symbol model.Symbol, side model.Side, qty, notional float64) {
	t.send(fmt.Sprintf("💰 *Fill*\nid: `%s`\nsymbol: `%s`\nside: `%s`\nqty: `%.6f`\nnotional: `%.2f`",
		positionID, symbol.String(), side, qty, notional))
}

func (t *Telegram) PositionClosed(positionID string, executedNotional float64) {
	t.send(fmt.Sprintf("⚪ *Position closed*\nid: `%s`\nexecuted: `%.2f USDT`", positionID, executedNotional))
}

func (t *Telegram) Error(positionID string, err error) {
	t.send(fmt.Sprintf("❌ *Error*\nid: `%s`\n`%s`", positionID, err.Error()))
}

var _ Sink = (*Telegram)(nil)
