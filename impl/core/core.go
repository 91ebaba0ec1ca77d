package core

import (
	"context"
	"fmt"
	"log/slog"
	"vetlink/entity"
	"vetlink/lib/sl"
)

type AuthService interface {
	UserByToken(ctx context.Context, token string) (*entity.User, error)
}

type CodeService interface {
	Generate(ctx context.Context, targetId string, ttlMinutes *int, createdBy string) (*entity.ConnectionCode, error)
	Claim(ctx context.Context, code, claimant string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, code, targetId, actor string) error
}

// Core is the single facade the HTTP api and the telegram bot talk to.
type Core struct {
	codes  CodeService
	auth   AuthService
	events EventPublisher
	log    *slog.Logger
}

func New(codes CodeService, log *slog.Logger) *Core {
	if codes == nil {
		panic("code service is nil")
	}
	return &Core{
		codes: codes,
		log:   log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetEventPublisher(events EventPublisher) {
	c.events = events
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(ctx, token)
}

func (c *Core) GenerateCode(ctx context.Context, user *entity.User, req *entity.CodeRequest) (*entity.GeneratedCode, error) {
	record, err := c.codes.Generate(ctx, req.TargetId, req.TtlMinutes, user.Claimant())
	if err != nil {
		return nil, err
	}
	c.publish(ctx, entity.TopicGenerated, record.Code, record.TargetId, user.Claimant())
	return &entity.GeneratedCode{
		Code:      record.Code,
		TargetId:  record.TargetId,
		ExpiresAt: record.ExpiresAt(),
	}, nil
}

func (c *Core) ClaimCode(ctx context.Context, user *entity.User, code string) (*entity.ClaimResult, error) {
	targetId, err := c.codes.Claim(ctx, code, user.Claimant())
	if err != nil {
		return nil, err
	}
	c.publish(ctx, entity.TopicClaimed, code, targetId, user.Claimant())
	return &entity.ClaimResult{
		Code:     code,
		TargetId: targetId,
	}, nil
}

// publish never fails the operation; the code is already stored or redeemed.
func (c *Core) publish(ctx context.Context, topic, code, targetId, actor string) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, topic, code, targetId, actor); err != nil {
		c.log.With(
			slog.String("topic", topic),
			sl.Code(code),
		).Warn("publish event", sl.Err(err))
	}
}
