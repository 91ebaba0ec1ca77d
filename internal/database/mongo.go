package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"time"
	"vetlink/entity"
	"vetlink/internal/config"
)

const (
	collectionUsers = "users"
	collectionCodes = "connection_codes"
)

type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(ctx context.Context, conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, fmt.Errorf("mongo is disabled in configuration")
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &MongoDB{
		client:   client,
		database: conf.Mongo.Database,
	}, nil
}

func (m *MongoDB) Close() {
	_ = m.client.Disconnect(context.Background())
}

func (m *MongoDB) codes() *mongo.Collection {
	return m.client.Database(m.database).Collection(collectionCodes)
}

// CreateCode inserts with the code as _id; the primary key index turns a
// second insert of the same code into a duplicate key error.
func (m *MongoDB) CreateCode(ctx context.Context, code *entity.ConnectionCode) error {
	_, err := m.codes().InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.ErrCodeExists
		}
		return fmt.Errorf("mongodb insert: %w", err)
	}
	return nil
}

func (m *MongoDB) GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error) {
	filter := bson.D{{"_id", code}}
	var raw bson.Raw
	err := m.codes().FindOne(ctx, filter).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrCodeNotFound
		}
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return decodeCodeDocument(code, raw), nil
}

// decodeCodeDocument reads field by field; a value of the wrong type is
// treated as missing, so a damaged document reaches the claim checks instead
// of failing the read.
func decodeCodeDocument(code string, raw bson.Raw) *entity.ConnectionCode {
	record := &entity.ConnectionCode{Code: code}
	record.TargetId, _ = raw.Lookup("target_id").StringValueOK()
	status, _ := raw.Lookup("status").StringValueOK()
	record.Status = entity.CodeStatus(status)
	record.CreatedBy, _ = raw.Lookup("created_by").StringValueOK()
	record.UsedBy, _ = raw.Lookup("used_by").StringValueOK()

	if ms, ok := raw.Lookup("created_at").DateTimeOK(); ok {
		t := time.UnixMilli(ms).UTC()
		record.CreatedAt = &t
	}
	if ttl, ok := intValue(raw.Lookup("ttl_minutes")); ok {
		record.TtlMinutes = &ttl
	}
	if ms, ok := raw.Lookup("used_at").DateTimeOK(); ok {
		t := time.UnixMilli(ms).UTC()
		record.UsedAt = &t
	}
	return record
}

// MarkCodeUsed is a single-document conditional update; mongo serializes
// writers on the document, so only one update can match status OPEN.
func (m *MongoDB) MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error {
	filter := bson.D{
		{"_id", code},
		{"status", entity.CodeOpen},
	}
	update := bson.D{{"$set", bson.D{
		{"status", entity.CodeUsed},
		{"used_by", usedBy},
		{"used_at", usedAt},
	}}}
	result, err := m.codes().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb update: %w", err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrCodeNotOpen
	}
	return nil
}

func (m *MongoDB) GetUser(ctx context.Context, token string) (*entity.User, error) {
	collection := m.client.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{"token", token}}
	var user entity.User
	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &user, nil
}

// EnsureIndexes creates the token index used by GetUser.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	collection := m.client.Database(m.database).Collection(collectionUsers)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{"token", 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb index: %w", err)
	}
	return nil
}

// intValue accepts both widths; the driver stores a Go int as int32 when it fits.
func intValue(v bson.RawValue) (int, bool) {
	if i, ok := v.Int32OK(); ok {
		return int(i), true
	}
	if i, ok := v.Int64OK(); ok {
		return int(i), true
	}
	return 0, false
}
