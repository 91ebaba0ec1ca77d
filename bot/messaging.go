package bot

import (
	"log/slog"
)

// SendMessageWithLevel forwards msg to admins unless level is below the bot's minimum.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.minLogLevel {
		return
	}
	t.notifyAdmins(msg)
}
