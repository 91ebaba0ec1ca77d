// Package bot is the Telegram front end for connection codes.
//
// Admins issue codes with /code and pass on the deep link; the other side
// opens it (or types /claim) and the bot redeems the code for them.
// Log records at or above the configured level are forwarded to admins.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"vetlink/entity"
	"vetlink/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

const requestTimeout = 5 * time.Second

type Core interface {
	GenerateCode(ctx context.Context, user *entity.User, req *entity.CodeRequest) (*entity.GeneratedCode, error)
	ClaimCode(ctx context.Context, user *entity.User, code string) (*entity.ClaimResult, error)
}

type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	core        Core
	admins      map[int64]bool
	minLogLevel slog.Level
	updater     *ext.Updater
}

func NewTgBot(apiKey string, admins []int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		admins:      make(map[int64]bool, len(admins)),
		minLogLevel: slog.LevelDebug,
	}
	for _, id := range admins {
		tgBot.admins[id] = true
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) SetCore(core Core) {
	t.core = core
}

func (t *TgBot) SetMinLogLevel(level slog.Level) {
	t.minLogLevel = level
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("claim", t.claim))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("code", t.code))

	t.setDefaultCommands()
	t.syncAdminMenus()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

func (t *TgBot) isAdmin(id int64) bool {
	return t.admins[id]
}

// chatUser is the identity recorded as creator or claimant for a telegram user.
func chatUser(sender *tgbotapi.User) *entity.User {
	return &entity.User{
		Username:   fmt.Sprintf("tg:%d", sender.Id),
		Name:       sender.Username,
		TelegramId: sender.Id,
	}
}
