package codes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"vetlink/entity"
	"vetlink/lib/sl"
)

// Claim redeems code on behalf of claimant and returns the linked target id.
//
// Checks run in a fixed order so the reported kind is deterministic:
// existence, createdAt, ttl, target, status value, expiry, used. The final
// OPEN -> USED transition is a conditional write; a caller that loses the race
// gets KindAlreadyUsed. Expiry is judged once, before the write.
func (s *Service) Claim(ctx context.Context, code, claimant string) (string, error) {
	code = strings.TrimSpace(code)
	log := s.log.With(sl.Code(code), slog.String("claimant", claimant))

	if !ValidCode(code) {
		log.Debug("malformed code")
		return "", newError(KindInvalidInput, code, errors.New("code must be 6 digits"))
	}

	record, err := s.store.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrCodeNotFound) {
			log.Info("code not found")
			return "", newError(KindNotFound, code, nil)
		}
		log.Error("get code", sl.Err(err))
		return "", newError(KindStoreUnavailable, code, err)
	}

	now := s.clock.Now()
	if kind := check(record, now); kind != KindUnknown {
		e := newError(kind, code, nil)
		if kind.IsIntegrity() {
			log.Error("malformed code record", sl.Err(e))
		} else {
			log.With(slog.String("reason", kind.String())).Info("claim rejected")
		}
		return "", e
	}

	err = s.store.MarkCodeUsed(ctx, code, claimant, now)
	if err != nil {
		if errors.Is(err, entity.ErrCodeNotOpen) {
			log.Info("claim lost race")
			return "", newError(KindAlreadyUsed, code, nil)
		}
		log.Error("mark code used", sl.Err(err))
		return "", newError(KindStoreUnavailable, code, err)
	}

	log.With(slog.String("target_id", record.TargetId)).Info("code claimed")
	return record.TargetId, nil
}

// check returns KindUnknown when the record may be claimed.
func check(record *entity.ConnectionCode, now time.Time) Kind {
	switch {
	case record.CreatedAt == nil:
		return KindMissingCreatedAt
	case record.TtlMinutes == nil:
		return KindMissingTtl
	case strings.TrimSpace(record.TargetId) == "":
		return KindInvalidTarget
	case !record.Status.IsValid():
		return KindInvalidStatus
	case record.IsExpired(now):
		return KindExpired
	case record.Status == entity.CodeUsed:
		return KindAlreadyUsed
	}
	return KindUnknown
}
