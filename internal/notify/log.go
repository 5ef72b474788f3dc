package notify

import (
	"github.com/rs/zerolog/log"

	"github.com/kestrelquant/execengine/model"
)

// LogSink is a Sink that writes structured log lines instead of sending
// messages, used when no Telegram token is configured.
type LogSink struct{}

func (LogSink) PositionOpened(spec model.PositionSpec, positionID string) {
	log.Info().Str("position_id", positionID).Str("asset", spec.Asset).
		Str("side", spec.Side.String()).Float64("size_usdt", spec.SizeUSDT).
		Msg("🟢 position opened")
}

func (LogSink) PhaseTransition(positionID string, phase string) {
	log.Info().Str("position_id", positionID).Str("phase", phase).Msg("🔄 phase transition")
}

func (LogSink) Fill(positionID string, symbol model.Symbol, side model.Side, qty, notional float64) {
	log.Info().Str("position_id", positionID).Str("symbol", symbol.String()).
		Str("side", side.String()).Float64("qty", qty).Float64("notional", notional).
		Msg("💰 fill")
}

func (LogSink) PositionClosed(positionID string, executedNotional float64) {
	log.Info().Str("position_id", positionID).Float64("executed_notional", executedNotional).
		Msg("⚪ position closed")
}

func (LogSink) Error(positionID string, err error) {
	log.Error().Str("position_id", positionID).Err(err).Msg("❌ position error")
}

var _ Sink = LogSink{}
