// File: database/repository/timeslot/crud.go
package timeslotRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mindbridge/database"
	"mindbridge/models"
)

func (r *mongoTimeSlotRepo) CreateMany(ctx context.Context, slots []models.AvailabilitySlot) ([]string, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	docs := make([]interface{}, len(slots))
	ids := make([]string, len(slots))
	for i, slot := range slots {
		if slot.ID == "" {
			slot.ID = uuid.New().String()
		}
		slot.IsBooked = false
		slot.CreatedAt = now
		slot.UpdatedAt = now
		docs[i] = slot
		ids[i] = slot.ID
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, fmt.Errorf("failed to create availability slots: %w", database.TranslateError(err))
	}
	return ids, nil
}

func (r *mongoTimeSlotRepo) UpdateShape(ctx context.Context, slotID, endTime string, durationMinutes int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"endTime":         endTime,
		"durationMinutes": durationMinutes,
		"updatedAt":       time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": slotID}, update)
	if err != nil {
		return fmt.Errorf("failed to update slot %s: %w", slotID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *mongoTimeSlotRepo) DeleteUnbooked(ctx context.Context, counsellorID string, slotIDs []string) (int64, error) {
	if len(slotIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// The isBooked predicate is evaluated per document at delete time, so a slot
	// booked since it was read survives.
	filter := bson.M{
		"counsellorId": counsellorID,
		"id":           bson.M{"$in": slotIDs},
		"isBooked":     false,
	}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unbooked slots: %w", err)
	}
	return res.DeletedCount, nil
}
