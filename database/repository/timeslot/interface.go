// File: database/repository/timeslot/interface.go
package timeslotRepo

import (
	"context"

	"mindbridge/database"
	"mindbridge/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// TimeSlotRepository stores counsellor availability slots outside of the
// reservation transaction. Reservation-time locking lives in schedulerRepo.
type TimeSlotRepository interface {
	// ListRange returns the counsellor's slots with from <= date <= to, ordered by date then start time.
	// Empty bounds are open.
	ListRange(ctx context.Context, counsellorID, from, to string) ([]models.AvailabilitySlot, error)
	// ListOpenByDate returns unbooked slots for one date ordered by start time.
	ListOpenByDate(ctx context.Context, counsellorID, date string) ([]models.AvailabilitySlot, error)
	CreateMany(ctx context.Context, slots []models.AvailabilitySlot) ([]string, error)
	UpdateShape(ctx context.Context, slotID, endTime string, durationMinutes int) error
	// DeleteUnbooked removes the given slots unless they are booked at delete time.
	DeleteUnbooked(ctx context.Context, counsellorID string, slotIDs []string) (int64, error)
}

type mongoTimeSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoTimeSlotRepo constructs a new MongoDB TimeSlotRepository.
func NewMongoTimeSlotRepo() TimeSlotRepository {
	repo := &mongoTimeSlotRepo{
		coll: database.Database().Collection("availability_slots"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("availability_slots", err)
	}
	return repo
}
