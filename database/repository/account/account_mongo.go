package accountRepo

import (
	"context"
	"fmt"
	"time"

	"mindbridge/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccountRepo implements AccountRepository using MongoDB.
type MongoAccountRepo struct {
	counsellors *mongo.Collection
	clients     *mongo.Collection
}

// NewMongoAccountRepo creates a new instance of AccountRepository using MongoDB.
func NewMongoAccountRepo() AccountRepository {
	db := database.Database()
	repo := &MongoAccountRepo{
		counsellors: db.Collection("counsellors"),
		clients:     db.Collection("clients"),
	}
	if err := repo.ensureIndexes(); err != nil {
		database.LogIndexError("counsellors/clients", err)
	}
	return repo
}

// newContext creates a child context with the given timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoAccountRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	idIndex := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := r.counsellors.Indexes().CreateOne(ctx, idIndex); err != nil {
		return fmt.Errorf("failed to create counsellor indexes: %w", err)
	}
	if _, err := r.clients.Indexes().CreateOne(ctx, idIndex); err != nil {
		return fmt.Errorf("failed to create client indexes: %w", err)
	}
	return nil
}
