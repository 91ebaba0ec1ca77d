package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"vetlink/bot"
	"vetlink/impl/auth"
	"vetlink/impl/codes"
	"vetlink/impl/core"
	"vetlink/internal/config"
	"vetlink/internal/database"
	"vetlink/internal/events"
	"vetlink/internal/http-server/api"
	"vetlink/lib/logger"
	"vetlink/lib/sl"
)

const logFileName = "vetlink.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log, err := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName), "vetlink")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Info("starting vetlink", slog.String("config", *configPath), slog.String("env", conf.Env))

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.Admins, log)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			tgBot.SetMinLogLevel(slog.Level(conf.Telegram.LogLevel))
			log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, slog.Level(conf.Telegram.LogLevel)))
			log.Info("telegram bot initialized")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.NewStore(ctx, conf, log)
	cancel()
	if err != nil {
		log.Error("code store", sl.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	svc := codes.New(store, codes.Config{
		DefaultTtlMinutes: conf.Codes.DefaultTtlMinutes,
		MaxAttempts:       conf.Codes.MaxAttempts,
	}, log)
	handler := core.New(svc, log)

	if mongo, ok := store.(*database.MongoDB); ok {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		if err = mongo.EnsureIndexes(ctx); err != nil {
			log.Warn("mongo indexes", sl.Err(err))
		}
		cancel()
		handler.SetAuthService(auth.New(mongo))
	} else {
		handler.SetAuthService(auth.New(auth.StaticUsers(conf.Users)))
		log.With(slog.Int("count", len(conf.Users))).Info("api users from config")
	}

	if conf.Nats.Enabled {
		publisher, err := events.NewNATSPublisher(conf.Nats.Url, conf.Nats.Subject)
		if err != nil {
			log.Error("nats", sl.Err(err))
		} else {
			defer publisher.Close()
			handler.SetEventPublisher(publisher)
			log.With(slog.String("subject", conf.Nats.Subject)).Info("publishing code events")
		}
	}

	if tgBot != nil {
		tgBot.SetCore(handler)
		go func() {
			if err := tgBot.Start(); err != nil {
				log.Error("starting telegram bot", sl.Err(err))
			}
		}()
		defer tgBot.Stop()
	}

	if err = api.New(conf, log, handler); err != nil {
		log.Error("server stopped", sl.Err(err))
	}
}
