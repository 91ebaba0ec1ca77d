package bot

import (
	"context"
	"fmt"
	"log/slog"
	"vetlink/impl/codes"
	"vetlink/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// start handles plain /start and the deep link form /start <code>.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	code, ok := commandArg(ctx.EffectiveMessage.Text)
	if !ok {
		t.plainResponse(chatId, "Hello\\! Open a connection link or send `/claim <code>` to connect\\.")
		return nil
	}
	t.redeem(ctx.EffectiveUser, code)
	return nil
}

func (t *TgBot) claim(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	code, ok := commandArg(ctx.EffectiveMessage.Text)
	if !ok {
		t.plainResponse(chatId, "Usage: `/claim <code>`")
		return nil
	}
	t.redeem(ctx.EffectiveUser, code)
	return nil
}

func (t *TgBot) redeem(sender *tgbotapi.User, code string) {
	chatId := sender.Id
	if t.core == nil {
		t.plainResponse(chatId, "Service is not available\\.")
		return
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := t.core.ClaimCode(reqCtx, chatUser(sender), code)
	if err != nil {
		kind := codes.KindOf(err)
		if kind.IsIntegrity() || kind == codes.KindStoreUnavailable || kind == codes.KindUnknown {
			t.reportError(chatId, "/claim", err)
			return
		}
		t.log.With(
			slog.Int64("user_id", chatId),
			sl.Code(code),
			slog.String("reason", kind.String()),
		).Debug("claim rejected")
		t.plainResponse(chatId, Sanitize(claimFailure(kind)))
		return
	}

	t.plainResponse(chatId, fmt.Sprintf("Connected to `%s`\\.", Sanitize(result.TargetId)))
	t.notifyAdmins(fmt.Sprintf("Code claimed for `%s` by %s", Sanitize(result.TargetId), Sanitize(senderName(sender))))
}

func claimFailure(kind codes.Kind) string {
	switch kind {
	case codes.KindInvalidInput:
		return "A code has 6 digits, please check it."
	case codes.KindNotFound:
		return "This code is not valid."
	case codes.KindExpired:
		return "This code has expired, ask for a new one."
	case codes.KindAlreadyUsed:
		return "This code was already used."
	}
	return kind.Message()
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	text := "*Commands*\n" +
		"`/claim <code>` \\- connect using a 6\\-digit code\n" +
		"`/help` \\- show this message\n"
	if t.isAdmin(chatId) {
		text += "\n*Admin*\n" +
			"`/code <target> [ttl]` \\- issue a connection code, ttl in minutes\n"
	}
	t.plainResponse(chatId, text)
	return nil
}
