// File: database/repository/timeslot/queries.go
package timeslotRepo

import (
	"context"
	"fmt"
	"time"

	"mindbridge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var slotOrder = bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}}

func (repo *mongoTimeSlotRepo) ListRange(ctx context.Context, counsellorID, from, to string) ([]models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"counsellorId": counsellorID}
	dateFilter := bson.M{}
	if from != "" {
		dateFilter["$gte"] = from
	}
	if to != "" {
		dateFilter["$lte"] = to
	}
	if len(dateFilter) > 0 {
		filter["date"] = dateFilter
	}

	return repo.find(ctx, filter)
}

func (repo *mongoTimeSlotRepo) ListOpenByDate(ctx context.Context, counsellorID, date string) ([]models.AvailabilitySlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"counsellorId": counsellorID,
		"date":         date,
		"isBooked":     false,
	}
	return repo.find(ctx, filter)
}

func (repo *mongoTimeSlotRepo) find(ctx context.Context, filter bson.M) ([]models.AvailabilitySlot, error) {
	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetSort(slotOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch availability slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []models.AvailabilitySlot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding availability slots: %w", err)
	}
	return slots, nil
}
