package codes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"vetlink/entity"
	"vetlink/lib/sl"
)

// Generate stores a new OPEN code linked to targetId and returns it.
// A nil ttlMinutes selects the default; zero and negative values are accepted
// and produce a code that is already expired.
func (s *Service) Generate(ctx context.Context, targetId string, ttlMinutes *int, createdBy string) (*entity.ConnectionCode, error) {
	targetId = strings.TrimSpace(targetId)
	if targetId == "" {
		return nil, newError(KindInvalidInput, "", errors.New("target id is blank"))
	}
	ttl := s.defaultTtl
	if ttlMinutes != nil {
		ttl = *ttlMinutes
	}

	log := s.log.With(
		slog.String("target_id", targetId),
		slog.Int("ttl_minutes", ttl),
	)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		createdAt := s.clock.Now()
		record := &entity.ConnectionCode{
			Code:       s.draw(),
			TargetId:   targetId,
			Status:     entity.CodeOpen,
			CreatedAt:  &createdAt,
			TtlMinutes: &ttl,
			CreatedBy:  createdBy,
		}

		err := s.store.CreateCode(ctx, record)
		if err == nil {
			log.With(
				sl.Code(record.Code),
				slog.Int("attempt", attempt),
			).Info("code generated")
			return record, nil
		}
		if !errors.Is(err, entity.ErrCodeExists) {
			log.Error("create code", sl.Err(err))
			return nil, newError(KindStoreUnavailable, "", err)
		}
		log.With(slog.Int("attempt", attempt)).Debug("code collision")

		if ctx.Err() != nil {
			return nil, newError(KindStoreUnavailable, "", ctx.Err())
		}
	}

	log.With(slog.Int("attempts", s.maxAttempts)).Warn("code space exhausted")
	return nil, newError(KindGenerationExhausted, "", fmt.Errorf("%d attempts collided", s.maxAttempts))
}

func (s *Service) draw() string {
	n := minCode + s.random.IntN(maxCode-minCode+1)
	return fmt.Sprintf("%0*d", CodeLength, n)
}
