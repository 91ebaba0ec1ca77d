package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"vetlink/entity"
)

type Database interface {
	GetUser(ctx context.Context, token string) (*entity.User, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

func (a Auth) UserByToken(ctx context.Context, token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	if token == "" {
		return nil, entity.ErrUserNotFound
	}
	user, err := a.db.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, fmt.Errorf("user %s is disabled", user.Username)
	}
	return user, nil
}

// StaticUsers serves the users listed in the config file.
type StaticUsers []entity.User

func (s StaticUsers) GetUser(_ context.Context, token string) (*entity.User, error) {
	for i := range s {
		if subtle.ConstantTimeCompare([]byte(s[i].Token), []byte(token)) == 1 {
			user := s[i]
			return &user, nil
		}
	}
	return nil, entity.ErrUserNotFound
}
