package codes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"vetlink/entity"
	"vetlink/internal/database/memory"
)

func TestClaimRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(store)

	rec, err := svc.Generate(ctx, "T", nil, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	target, err := svc.Claim(ctx, rec.Code, "farmer-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if target != "T" {
		t.Fatalf("target = %q, want T", target)
	}

	stored, _ := store.GetCode(ctx, rec.Code)
	if stored.Status != entity.CodeUsed {
		t.Fatalf("status = %q, want USED", stored.Status)
	}
	if stored.UsedBy != "farmer-1" || stored.UsedAt == nil {
		t.Fatalf("audit fields not set: %+v", stored)
	}
}

func TestClaimTwiceRejectsSecond(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New())

	rec, _ := svc.Generate(ctx, "office-1", nil, "")
	if _, err := svc.Claim(ctx, rec.Code, "a"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := svc.Claim(ctx, rec.Code, "b")
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("second claim err = %v, want already used", err)
	}
	if !strings.Contains(err.Error(), "used") {
		t.Fatalf("message %q lacks \"used\"", err.Error())
	}
}

func TestClaimUnknownCode(t *testing.T) {
	_, err := newTestService(memory.New()).Claim(context.Background(), "999999", "")
	if KindOf(err) != KindNotFound {
		t.Fatalf("kind = %v, want not_found", KindOf(err))
	}
}

func TestClaimMalformedCode(t *testing.T) {
	store := &countingStore{Store: memory.New(), getErr: errors.New("must not be called")}
	svc := newTestService(store)

	for _, code := range []string{"", "12345", "abcdef", "1234567"} {
		_, err := svc.Claim(context.Background(), code, "")
		if KindOf(err) != KindInvalidInput {
			t.Errorf("code %q: kind = %v, want invalid_input", code, KindOf(err))
		}
	}
}

func TestClaimExpiry(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New())

	expired, _ := svc.Generate(ctx, "office-1", intPtr(-1), "")
	_, err := svc.Claim(ctx, expired.Code, "")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("ttl -1: err = %v, want expired", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("message %q lacks \"expired\"", err.Error())
	}

	fresh, _ := svc.Generate(ctx, "office-1", intPtr(1), "")
	if _, err := svc.Claim(ctx, fresh.Code, ""); err != nil {
		t.Fatalf("ttl 1: %v", err)
	}
}

func TestClaimExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	clk := newMovableClock()
	svc := newTestService(memory.New(), WithClock(clk))

	rec, _ := svc.Generate(ctx, "office-1", intPtr(10), "")

	clk.Advance(10 * time.Minute)
	if kind := check(mustGet(t, svc, rec.Code), clk.Now()); kind != KindUnknown {
		t.Fatalf("at the deadline: kind = %v, want claimable", kind)
	}

	clk.Advance(time.Millisecond)
	_, err := svc.Claim(ctx, rec.Code, "")
	if KindOf(err) != KindExpired {
		t.Fatalf("past the deadline: kind = %v, want expired", KindOf(err))
	}
}

func mustGet(t *testing.T, svc *Service, code string) *entity.ConnectionCode {
	t.Helper()
	rec, err := svc.store.GetCode(context.Background(), code)
	if err != nil {
		t.Fatalf("get %s: %v", code, err)
	}
	return rec
}

func TestClaimMalformedRecords(t *testing.T) {
	now := baseTime
	ttl := 60

	tests := []struct {
		name   string
		record entity.ConnectionCode
		kind   Kind
		text   string
	}{
		{
			name:   "missing createdAt",
			record: entity.ConnectionCode{TargetId: "office-1", Status: entity.CodeOpen, TtlMinutes: &ttl},
			kind:   KindMissingCreatedAt,
			text:   "Missing createdAt",
		},
		{
			name:   "missing ttl",
			record: entity.ConnectionCode{TargetId: "office-1", Status: entity.CodeOpen, CreatedAt: &now},
			kind:   KindMissingTtl,
			text:   "Missing TTL",
		},
		{
			name:   "missing target",
			record: entity.ConnectionCode{Status: entity.CodeOpen, CreatedAt: &now, TtlMinutes: &ttl},
			kind:   KindInvalidTarget,
			text:   "Invalid office ID",
		},
		{
			name:   "blank target",
			record: entity.ConnectionCode{TargetId: "  ", Status: entity.CodeOpen, CreatedAt: &now, TtlMinutes: &ttl},
			kind:   KindInvalidTarget,
			text:   "Invalid office ID",
		},
		{
			name:   "unknown status",
			record: entity.ConnectionCode{TargetId: "office-1", Status: "PENDING", CreatedAt: &now, TtlMinutes: &ttl},
			kind:   KindInvalidStatus,
			text:   "Invalid status",
		},
		{
			name:   "createdAt checked before ttl",
			record: entity.ConnectionCode{TargetId: "office-1", Status: entity.CodeOpen},
			kind:   KindMissingCreatedAt,
			text:   "Missing createdAt",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.New()
			rec := tt.record
			rec.Code = "50000" + string(rune('0'+i))
			mem.Put(&rec)

			store := &countingStore{Store: mem}
			svc := newTestService(store, WithClock(newMovableClock()))

			_, err := svc.Claim(context.Background(), rec.Code, "")
			if KindOf(err) != tt.kind {
				t.Fatalf("kind = %v, want %v", KindOf(err), tt.kind)
			}
			if KindOf(err) == KindNotFound {
				t.Fatal("malformed record reported as not found")
			}
			if !strings.Contains(err.Error(), tt.text) {
				t.Fatalf("message %q lacks %q", err.Error(), tt.text)
			}
			if store.marks.Load() != 0 {
				t.Fatal("malformed record was written")
			}
		})
	}
}

func TestClaimExpiredTakesPrecedenceOverUsed(t *testing.T) {
	mem := memory.New()
	mem.Put(record("700000", "office-1", entity.CodeUsed, baseTime.Add(-2*time.Hour), 60))
	svc := newTestService(mem, WithClock(newMovableClock()))

	_, err := svc.Claim(context.Background(), "700000", "")
	if KindOf(err) != KindExpired {
		t.Fatalf("kind = %v, want expired", KindOf(err))
	}
}

func TestClaimUsedRecordIsNotWritten(t *testing.T) {
	mem := memory.New()
	mem.Put(record("700001", "office-1", entity.CodeUsed, baseTime, 60))
	store := &countingStore{Store: mem}
	svc := newTestService(store, WithClock(newMovableClock()))

	_, err := svc.Claim(context.Background(), "700001", "")
	if KindOf(err) != KindAlreadyUsed {
		t.Fatalf("kind = %v, want already_used", KindOf(err))
	}
	if store.marks.Load() != 0 {
		t.Fatal("conditional write attempted on a USED record")
	}
}

func TestClaimLostRaceAtWrite(t *testing.T) {
	mem := memory.New()
	mem.Put(record("710000", "office-1", entity.CodeUsed, baseTime, 60))
	// the read still sees OPEN; the write finds it taken
	stale := record("710000", "office-1", entity.CodeOpen, baseTime, 60)
	store := &countingStore{Store: mem, stale: stale}
	svc := newTestService(store, WithClock(newMovableClock()))

	_, err := svc.Claim(context.Background(), "710000", "late")
	if KindOf(err) != KindAlreadyUsed {
		t.Fatalf("kind = %v, want already_used", KindOf(err))
	}
	if store.marks.Load() != 1 {
		t.Fatalf("marks = %d, want 1", store.marks.Load())
	}
}

func TestClaimStoreFailures(t *testing.T) {
	cause := errors.New("i/o timeout")

	t.Run("read", func(t *testing.T) {
		store := &countingStore{Store: memory.New(), getErr: cause}
		_, err := newTestService(store).Claim(context.Background(), "123456", "")
		if KindOf(err) != KindStoreUnavailable || !errors.Is(err, cause) {
			t.Fatalf("err = %v, want store_unavailable wrapping cause", err)
		}
	})

	t.Run("write", func(t *testing.T) {
		mem := memory.New()
		mem.Put(record("123456", "office-1", entity.CodeOpen, baseTime, 60))
		store := &countingStore{Store: mem, markErr: cause}
		_, err := newTestService(store, WithClock(newMovableClock())).Claim(context.Background(), "123456", "")
		if KindOf(err) != KindStoreUnavailable {
			t.Fatalf("kind = %v, want store_unavailable", KindOf(err))
		}
		if errors.Is(err, ErrAlreadyUsed) {
			t.Fatal("store failure reported as a lost race")
		}
	})
}

func TestClaimSingleWinnerRace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New())

	for round := 0; round < 100; round++ {
		rec, err := svc.Generate(ctx, "office-1", nil, "")
		if err != nil {
			t.Fatalf("round %d generate: %v", round, err)
		}

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, 2)
		)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Claim(ctx, rec.Code, "claimant")
			}(i)
		}
		close(start)
		wg.Wait()

		wins, used := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case KindOf(err) == KindAlreadyUsed:
				used++
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if wins != 1 || used != 1 {
			t.Fatalf("round %d: wins=%d already_used=%d", round, wins, used)
		}
	}
}

func TestClaimManyClaimants(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New())
	rec, _ := svc.Generate(ctx, "office-9", nil, "")

	const claimants = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		start   = make(chan struct{})
		winners []string
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			target, err := svc.Claim(ctx, rec.Code, "c")
			if err == nil {
				mu.Lock()
				winners = append(winners, target)
				mu.Unlock()
				return
			}
			if KindOf(err) != KindAlreadyUsed {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || winners[0] != "office-9" {
		t.Fatalf("winners = %v, want exactly one office-9", winners)
	}
}

func TestClaimHugeTtl(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New(), WithClock(newMovableClock()))

	rec, err := svc.Generate(ctx, "office-1", intPtr(200_000_000), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !rec.ExpiresAt().After(baseTime) {
		t.Fatalf("expires_at = %v, want after %v", rec.ExpiresAt(), baseTime)
	}
	if _, err := svc.Claim(ctx, rec.Code, ""); err != nil {
		t.Fatalf("claim: %v", err)
	}
}
