// File: database/repository/account/accountMongoQueries.go
package accountRepo

import (
	"context"
	"fmt"
	"time"

	"mindbridge/database"
	"mindbridge/models"

	"go.mongodb.org/mongo-driver/bson"
)

// GetCounsellor retrieves a counsellor by its unique ID.
func (r *MongoAccountRepo) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var counsellor models.Counsellor
	if err := r.counsellors.FindOne(ctx, bson.M{"id": id}).Decode(&counsellor); err != nil {
		return nil, fmt.Errorf("failed to fetch counsellor with id %s: %w", id, database.TranslateError(err))
	}
	return &counsellor, nil
}

// GetClient retrieves a client by its unique ID.
func (r *MongoAccountRepo) GetClient(ctx context.Context, id string) (*models.Client, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var client models.Client
	if err := r.clients.FindOne(ctx, bson.M{"id": id}).Decode(&client); err != nil {
		return nil, fmt.Errorf("failed to fetch client with id %s: %w", id, database.TranslateError(err))
	}
	return &client, nil
}

// UpdateCounsellorAvailability sets durations and visibility; empty bounds keep the stored ones.
func (r *MongoAccountRepo) UpdateCounsellorAvailability(ctx context.Context, id string, update models.CounsellorAvailabilityUpdate) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"defaultSessionDuration": update.DefaultSessionDuration,
		"defaultBreakDuration":   update.DefaultBreakDuration,
		"isAvailable":            update.IsAvailable,
		"updatedAt":              time.Now(),
	}
	if update.AvailableFrom != "" {
		set["availableFrom"] = update.AvailableFrom
	}
	if update.AvailableTo != "" {
		set["availableTo"] = update.AvailableTo
	}

	res, err := r.counsellors.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating counsellor %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("counsellor %s: %w", id, database.ErrNotFound)
	}
	return nil
}
