package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"vetlink/entity"
	"vetlink/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// telegram rejects longer messages
const maxMessageLength = 4096

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	for _, part := range splitMessage(text, maxMessageLength) {
		_, err := t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
			_, err = t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{})
			if err != nil {
				t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
			}
		}
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*`~>"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func (t *TgBot) notifyAdmins(msg string) {
	for id := range t.admins {
		t.plainResponse(id, msg)
	}
}

// reportError logs the error, notifies admins with details, and sends a neutral message to the user.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.notifyAdmins(fmt.Sprintf(
		"Command `%s` failed\nUser: `%d`\nError: `%s`",
		Sanitize(command), chatId, Sanitize(err.Error()),
	))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// commandArg returns the first argument of a command message.
func commandArg(text string) (string, bool) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return "", false
	}
	return args[1], true
}

func parseCodeArgs(text string) (*entity.CodeRequest, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return nil, fmt.Errorf("target is required")
	}
	req := &entity.CodeRequest{TargetId: args[1]}
	if len(args) > 2 {
		ttl, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("ttl must be a number of minutes: %q", args[2])
		}
		req.TtlMinutes = &ttl
	}
	return req, nil
}

func deepLink(botName, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botName, code)
}

func senderName(user *tgbotapi.User) string {
	if user.Username != "" {
		return fmt.Sprintf("@%s (%d)", user.Username, user.Id)
	}
	return fmt.Sprintf("%d", user.Id)
}
