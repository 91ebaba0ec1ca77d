package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
	"vetlink/entity"
	"vetlink/impl/codes"
	"vetlink/lib/clock"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testNs = "vetlink.connection_codes"

func openRecord() *entity.ConnectionCode {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	ttl := 60
	return &entity.ConnectionCode{
		Code:       "123456",
		TargetId:   "office-1",
		Status:     entity.CodeOpen,
		CreatedAt:  &now,
		TtlMinutes: &ttl,
	}
}

func TestMongoCreateCode(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := db.CreateCode(context.Background(), openRecord()); err != nil {
			mt.Fatalf("CreateCode: %v", err)
		}
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: vetlink.connection_codes",
		}))

		err := db.CreateCode(context.Background(), openRecord())
		if !errors.Is(err, entity.ErrCodeExists) {
			mt.Fatalf("err = %v, want ErrCodeExists", err)
		}
	})

	mt.Run("other failure", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Name:    "ShutdownInProgress",
			Message: "shutting down",
		}))

		err := db.CreateCode(context.Background(), openRecord())
		if err == nil || errors.Is(err, entity.ErrCodeExists) {
			mt.Fatalf("err = %v, want a store error", err)
		}
	})
}

func TestMongoGetCode(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing fields decode as nil", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, testNs, mtest.FirstBatch, bson.D{
			{"_id", "123456"},
			{"target_id", "office-1"},
			{"status", "OPEN"},
		}))

		record, err := db.GetCode(context.Background(), "123456")
		if err != nil {
			mt.Fatalf("GetCode: %v", err)
		}
		if record.Code != "123456" || record.TargetId != "office-1" || record.Status != entity.CodeOpen {
			mt.Fatalf("unexpected record: %+v", record)
		}
		if record.CreatedAt != nil || record.TtlMinutes != nil {
			mt.Fatalf("absent fields should stay nil: %+v", record)
		}
	})

	mt.Run("full record", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, testNs, mtest.FirstBatch, bson.D{
			{"_id", "123456"},
			{"target_id", "office-1"},
			{"status", "USED"},
			{"created_at", created},
			{"ttl_minutes", int32(-1)},
		}))

		record, err := db.GetCode(context.Background(), "123456")
		if err != nil {
			mt.Fatalf("GetCode: %v", err)
		}
		if record.CreatedAt == nil || !record.CreatedAt.Equal(created) {
			mt.Fatalf("created_at = %v", record.CreatedAt)
		}
		if record.TtlMinutes == nil || *record.TtlMinutes != -1 {
			mt.Fatalf("ttl = %v", record.TtlMinutes)
		}
	})

	mt.Run("int64 ttl", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, testNs, mtest.FirstBatch, bson.D{
			{"_id", "123456"},
			{"target_id", "office-1"},
			{"status", "OPEN"},
			{"created_at", time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
			{"ttl_minutes", int64(200_000_000)},
		}))

		record, err := db.GetCode(context.Background(), "123456")
		if err != nil {
			mt.Fatalf("GetCode: %v", err)
		}
		if record.TtlMinutes == nil || *record.TtlMinutes != 200_000_000 {
			mt.Fatalf("ttl = %v", record.TtlMinutes)
		}
	})

	mt.Run("mistyped fields decode as missing", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, testNs, mtest.FirstBatch, bson.D{
			{"_id", "123456"},
			{"target_id", int32(42)},
			{"status", "OPEN"},
			{"created_at", "2024-06-01T09:00:00Z"},
			{"ttl_minutes", "60"},
		}))

		record, err := db.GetCode(context.Background(), "123456")
		if err != nil {
			mt.Fatalf("GetCode: %v", err)
		}
		if record.TargetId != "" || record.CreatedAt != nil || record.TtlMinutes != nil {
			mt.Fatalf("mistyped fields should be missing: %+v", record)
		}
		if record.Status != entity.CodeOpen {
			mt.Fatalf("status = %q", record.Status)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNs, mtest.FirstBatch))

		_, err := db.GetCode(context.Background(), "999999")
		if !errors.Is(err, entity.ErrCodeNotFound) {
			mt.Fatalf("err = %v, want ErrCodeNotFound", err)
		}
	})
}

func TestMongoMarkCodeUsed(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matched", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(bson.D{{"ok", 1}, {"n", 1}, {"nModified", 1}})

		if err := db.MarkCodeUsed(context.Background(), "123456", "farmer", time.Now()); err != nil {
			mt.Fatalf("MarkCodeUsed: %v", err)
		}
	})

	mt.Run("no longer open", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(bson.D{{"ok", 1}, {"n", 0}, {"nModified", 0}})

		err := db.MarkCodeUsed(context.Background(), "123456", "farmer", time.Now())
		if !errors.Is(err, entity.ErrCodeNotOpen) {
			mt.Fatalf("err = %v, want ErrCodeNotOpen", err)
		}
	})
}

func TestMongoGetUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "vetlink.users", mtest.FirstBatch, bson.D{
			{"username", "office"},
			{"token", "secret"},
		}))

		user, err := db.GetUser(context.Background(), "secret")
		if err != nil || user.Username != "office" {
			mt.Fatalf("GetUser = %+v, %v", user, err)
		}
	})

	mt.Run("unknown token", func(mt *mtest.T) {
		db := &MongoDB{client: mt.Client, database: "vetlink"}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vetlink.users", mtest.FirstBatch))

		_, err := db.GetUser(context.Background(), "nope")
		if !errors.Is(err, entity.ErrUserNotFound) {
			mt.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	})
}

func TestMongoClaimDamagedRecord(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.Func(func() time.Time { return created })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		doc  bson.D
		kind codes.Kind
	}{
		{
			name: "numeric target",
			doc: bson.D{
				{"_id", "123456"},
				{"target_id", int32(42)},
				{"status", "OPEN"},
				{"created_at", created},
				{"ttl_minutes", int32(60)},
			},
			kind: codes.KindInvalidTarget,
		},
		{
			name: "string ttl",
			doc: bson.D{
				{"_id", "123456"},
				{"target_id", "office-1"},
				{"status", "OPEN"},
				{"created_at", created},
				{"ttl_minutes", "60"},
			},
			kind: codes.KindMissingTtl,
		},
		{
			name: "string created_at",
			doc: bson.D{
				{"_id", "123456"},
				{"target_id", "office-1"},
				{"status", "OPEN"},
				{"created_at", "2024-06-01"},
				{"ttl_minutes", int32(60)},
			},
			kind: codes.KindMissingCreatedAt,
		},
	}
	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			db := &MongoDB{client: mt.Client, database: "vetlink"}
			mt.AddMockResponses(mtest.CreateCursorResponse(1, testNs, mtest.FirstBatch, tt.doc))
			svc := codes.New(db, codes.Config{}, log, codes.WithClock(clk))

			_, err := svc.Claim(context.Background(), "123456", "farmer")
			if codes.KindOf(err) != tt.kind {
				mt.Fatalf("kind = %v, want %v (err %v)", codes.KindOf(err), tt.kind, err)
			}
		})
	}
}
