package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"vetlink/entity"
	"vetlink/internal/config"
	"vetlink/internal/database/memory"
	"vetlink/lib/sl"
)

// CodeStore is implemented by every backend selectable with store.driver.
type CodeStore interface {
	CreateCode(ctx context.Context, code *entity.ConnectionCode) error
	GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error)
	MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error
	Close()
}

func NewStore(ctx context.Context, conf *config.Config, log *slog.Logger) (CodeStore, error) {
	log = log.With(sl.Module("database"), slog.String("driver", conf.Store.Driver))

	var store CodeStore
	var err error
	switch conf.Store.Driver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverMongo:
		store, err = NewMongoClient(ctx, conf)
	case config.DriverRedis:
		store, err = NewRedisClient(ctx, conf)
	case config.DriverMySql:
		store, err = NewSQLClient(ctx, conf)
	default:
		err = fmt.Errorf("unknown store driver %q", conf.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Info("code store connected")
	return store, nil
}
