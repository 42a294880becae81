package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindbridge/database"
	"mindbridge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSchedulerRepo implements SchedulerRepository using MongoDB multi-document transactions.
type MongoSchedulerRepo struct {
	client         *mongo.Client
	slotColl       *mongo.Collection
	bookingColl    *mongo.Collection
	paymentColl    *mongo.Collection
	clientColl     *mongo.Collection
	counsellorColl *mongo.Collection
	pairColl       *mongo.Collection
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo() SchedulerRepository {
	db := database.Database()
	repo := &MongoSchedulerRepo{
		client:         db.Client(),
		slotColl:       db.Collection("availability_slots"),
		bookingColl:    db.Collection("bookings"),
		paymentColl:    db.Collection("payments"),
		clientColl:     db.Collection("clients"),
		counsellorColl: db.Collection("counsellors"),
		pairColl:       db.Collection("client_counsellor_pairs"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("bookings", err)
	}
	return repo
}

// GetBooking retrieves a booking by its reference.
func (repo *MongoSchedulerRepo) GetBooking(ctx context.Context, reference string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"reference": reference}).Decode(&booking); err != nil {
		return nil, fmt.Errorf("booking %s: %w", reference, database.TranslateError(err))
	}
	return &booking, nil
}

// GetPaymentByBooking retrieves the payment attached to a booking.
func (repo *MongoSchedulerRepo) GetPaymentByBooking(ctx context.Context, reference string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payment models.Payment
	if err := repo.paymentColl.FindOne(ctx, bson.M{"bookingReference": reference}).Decode(&payment); err != nil {
		return nil, fmt.Errorf("payment for booking %s: %w", reference, database.TranslateError(err))
	}
	return &payment, nil
}

// EnsureIndexes creates the booking, payment and pair indexes.
func (repo *MongoSchedulerRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	_, err := repo.bookingColl.Indexes().CreateMany(ctx, bookingIndexes())
	errs = append(errs, err)
	_, err = repo.paymentColl.Indexes().CreateMany(ctx, paymentIndexes())
	errs = append(errs, err)
	_, err = repo.pairColl.Indexes().CreateOne(ctx, pairIndex())
	errs = append(errs, err)
	return errors.Join(errs...)
}
