package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const sessionCollection = "deck_sessions"

// MongoStore keeps one document per session in the deck_sessions collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type sessionDoc struct {
	ID        string `bson:"_id"`
	Snapshot  string `bson:"snapshot"`
	Version   int    `bson:"version"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(sessionCollection)
	_, err = coll.Indexes().CreateOne(pingCtx, mongo.IndexModel{Keys: bson.D{{Key: "updated_at", Value: 1}}})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (m *MongoStore) Create(ctx context.Context, data []byte) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rec := newRecord(data)
	_, err := m.coll.InsertOne(ctx, sessionDoc{
		ID:        rec.ID.String(),
		Snapshot:  string(data),
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.UnixMilli(),
		UpdatedAt: rec.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

func (m *MongoStore) Load(ctx context.Context, id uuid.UUID) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc sessionDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Record{
		ID:        id,
		Data:      []byte(doc.Snapshot),
		Version:   doc.Version,
		CreatedAt: time.UnixMilli(doc.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(doc.UpdatedAt).UTC(),
	}, nil
}

func (m *MongoStore) Save(ctx context.Context, id uuid.UUID, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"snapshot": string(data), "updated_at": time.Now().UTC().UnixMilli()},
		"$inc": bson.M{"version": 1},
	}
	result, err := m.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.coll.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff.UTC().UnixMilli()}})
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}
