package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type preference struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KVStore persists display preferences in a MongoDB collection so several
// kitchen screens share the same filter toggles.
type KVStore struct {
	url        string
	dbName     string
	client     *mongo.Client
	collection *mongo.Collection
	logger     aqm.Logger
}

func NewKVStore(url, dbName string, logger aqm.Logger) *KVStore {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &KVStore{
		url:    url,
		dbName: dbName,
		logger: logger,
	}
}

func (s *KVStore) Start(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(s.url).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	s.client = client
	s.collection = client.Database(s.dbName).Collection("preferences")

	s.logger.Infof("Connected to MongoDB: %s, database: %s, collection: preferences", s.url, s.dbName)
	return nil
}

func (s *KVStore) Stop(ctx context.Context) error {
	if s.client != nil {
		if err := s.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		s.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.collection == nil {
		return "", false, errors.New("mongo store not started")
	}

	var p preference
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cannot find preference: %w", err)
	}
	return p.Value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if s.collection == nil {
		return errors.New("mongo store not started")
	}

	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot upsert preference: %w", err)
	}
	return nil
}
