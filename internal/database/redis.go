package database

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"vetlink/entity"
	"vetlink/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	fieldTargetId   = "target_id"
	fieldStatus     = "status"
	fieldCreatedAt  = "created_at"
	fieldTtlMinutes = "ttl_minutes"
	fieldCreatedBy  = "created_by"
	fieldUsedBy     = "used_by"
	fieldUsedAt     = "used_at"
)

// Redis keeps one hash per code under "<prefix>code:<code>".
type Redis struct {
	client     *redis.Client
	prefix     string
	createCode *redis.Script
	markUsed   *redis.Script
}

func NewRedisClient(ctx context.Context, conf *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedis(client, conf.Redis.Prefix), nil
}

func newRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:     client,
		prefix:     prefix,
		createCode: redis.NewScript(createCodeScript),
		markUsed:   redis.NewScript(markUsedScript),
	}
}

func (r *Redis) Close() {
	_ = r.client.Close()
}

func (r *Redis) key(code string) string {
	return r.prefix + "code:" + code
}

func (r *Redis) CreateCode(ctx context.Context, code *entity.ConnectionCode) error {
	created, err := r.createCode.Run(ctx, r.client, []string{r.key(code.Code)}, encodeHash(code)...).Int()
	if err != nil {
		return fmt.Errorf("redis create: %w", err)
	}
	if created == 0 {
		return entity.ErrCodeExists
	}
	return nil
}

func (r *Redis) GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error) {
	fields, err := r.client.HGetAll(ctx, r.key(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if len(fields) == 0 {
		return nil, entity.ErrCodeNotFound
	}
	return decodeHash(code, fields), nil
}

func (r *Redis) MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error {
	updated, err := r.markUsed.Run(ctx, r.client, []string{r.key(code)},
		string(entity.CodeOpen),
		string(entity.CodeUsed),
		usedBy,
		usedAt.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("redis mark used: %w", err)
	}
	if updated == 0 {
		return entity.ErrCodeNotOpen
	}
	return nil
}

// encodeHash flattens a record into HSET field/value arguments. Nil fields
// are left out so they stay missing on read.
func encodeHash(code *entity.ConnectionCode) []interface{} {
	args := []interface{}{
		fieldTargetId, code.TargetId,
		fieldStatus, string(code.Status),
	}
	if code.CreatedAt != nil {
		args = append(args, fieldCreatedAt, code.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	if code.TtlMinutes != nil {
		args = append(args, fieldTtlMinutes, strconv.Itoa(*code.TtlMinutes))
	}
	if code.CreatedBy != "" {
		args = append(args, fieldCreatedBy, code.CreatedBy)
	}
	return args
}

// decodeHash treats unparsable timestamps and numbers as missing.
func decodeHash(code string, fields map[string]string) *entity.ConnectionCode {
	record := &entity.ConnectionCode{
		Code:      code,
		TargetId:  fields[fieldTargetId],
		Status:    entity.CodeStatus(fields[fieldStatus]),
		CreatedBy: fields[fieldCreatedBy],
		UsedBy:    fields[fieldUsedBy],
	}
	if v, ok := fields[fieldCreatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			record.CreatedAt = &t
		}
	}
	if v, ok := fields[fieldTtlMinutes]; ok {
		if ttl, err := strconv.Atoi(v); err == nil {
			record.TtlMinutes = &ttl
		}
	}
	if v, ok := fields[fieldUsedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			record.UsedAt = &t
		}
	}
	return record
}
