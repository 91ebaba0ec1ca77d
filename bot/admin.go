package bot

import (
	"context"
	"fmt"
	"vetlink/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// code issues a connection code: /code <target> [ttl minutes].
func (t *TgBot) code(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}
	if t.core == nil {
		t.plainResponse(chatId, "Service is not available\\.")
		return nil
	}

	req, err := parseCodeArgs(ctx.EffectiveMessage.Text)
	if err != nil {
		t.plainResponse(chatId, Sanitize(err.Error())+"\nUsage: `/code <target> [ttl]`")
		return nil
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	generated, err := t.core.GenerateCode(reqCtx, chatUser(ctx.EffectiveUser), req)
	if err != nil {
		t.reportError(chatId, "/code", err)
		return nil
	}

	t.plainResponse(chatId, codeMessage(generated, t.api.Username))
	return nil
}

func codeMessage(generated *entity.GeneratedCode, botName string) string {
	text := fmt.Sprintf("Code for `%s`: *%s*\nValid until %s",
		Sanitize(generated.TargetId),
		generated.Code,
		Sanitize(generated.ExpiresAt.Format("2006-01-02 15:04 MST")),
	)
	if botName != "" {
		text += "\n" + Sanitize(deepLink(botName, generated.Code))
	}
	return text
}
