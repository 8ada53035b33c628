package telegram

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Updates starts long polling. With skipPending, updates queued while the bot was down are
// dropped so stale button taps from a previous run are never replayed.
func Updates(api *tgbotapi.BotAPI, timeout int, skipPending bool, logger *slog.Logger) tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	if skipPending {
		cfg.Offset = pendingOffset(api, logger)
	}
	return api.GetUpdatesChan(cfg)
}

func pendingOffset(api *tgbotapi.BotAPI, logger *slog.Logger) int {
	last, err := api.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		logger.Warn("could not skip pending updates", "error", err)
		return 0
	}
	if len(last) == 0 {
		return 0
	}
	return last[len(last)-1].UpdateID + 1
}
