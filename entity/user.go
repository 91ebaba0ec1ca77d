package entity

import "errors"

var ErrUserNotFound = errors.New("user not found")

// User is an API client authenticated by a bearer token.
// Users come either from the mongo "users" collection or from the static
// list in the config file.
type User struct {
	Username   string `json:"username" bson:"username" yaml:"username" validate:"required"`
	Name       string `json:"name" bson:"name" yaml:"name"`
	Token      string `json:"token" bson:"token" yaml:"token" validate:"required,min=1"`
	TelegramId int64  `json:"telegram_id" bson:"telegram_id" yaml:"telegram_id"`
	Disabled   bool   `json:"disabled" bson:"disabled" yaml:"disabled"`
}

// Claimant is the identity recorded as used_by on a redeemed code.
func (u *User) Claimant() string {
	if u == nil || u.Username == "" {
		return "anonymous"
	}
	return u.Username
}
