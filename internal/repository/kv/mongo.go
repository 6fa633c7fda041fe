package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCollection is the collection entries are written to.
const MongoCollection = "kv_entries"

type mongoEntry struct {
	Scope     string    `bson:"scope"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoRepo struct {
	collection *mongo.Collection
	scope      string
}

// NewMongo stores one document per (scope, key) in db's kv_entries collection.
func NewMongo(db *mongo.Database, scope string) Repository {
	return &mongoRepo{collection: db.Collection(MongoCollection), scope: scopeOrDefault(scope)}
}

// EnsureMongoIndexes creates the unique (scope, key) index.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(MongoCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create kv index: %w", err)
	}
	return nil
}

func (r *mongoRepo) filter(key string) bson.M {
	return bson.M{"scope": r.scope, "key": key}
}

func (r *mongoRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var entry mongoEntry
	err := r.collection.FindOne(ctx, r.filter(key)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (r *mongoRepo) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": mongoEntry{Scope: r.scope, Key: key, Value: value, UpdatedAt: time.Now().UTC()}}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, r.filter(key), update, opts); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

func (r *mongoRepo) Remove(ctx context.Context, key string) error {
	if _, err := r.collection.DeleteOne(ctx, r.filter(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ConnectMongo opens a client and returns the named database after a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}
