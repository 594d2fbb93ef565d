package state

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides MongoDB state management for compile runs.
type Store struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewStore connects to MongoDB and prepares the runs collection.
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{
		client: client,
		runs:   client.Database(dbName).Collection("compile_runs"),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.runs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "project", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create compile_runs indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveRun inserts or replaces a compile run record.
func (s *Store) SaveRun(ctx context.Context, run *CompileRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": run.ID}, run, opts)
	return err
}

// GetRun retrieves a compile run by ID; nil when not found.
func (s *Store) GetRun(ctx context.Context, id string) (*CompileRun, error) {
	var run CompileRun
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent compile runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int64) ([]*CompileRun, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*CompileRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
