package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindbridge/database"
	"mindbridge/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// RunInTransaction runs fn in a snapshot transaction. Documents are locked by
// writing to them first; a second transaction writing the same document gets
// a WriteConflict, reported as database.ErrLockConflict.
func (repo *MongoSchedulerRepo) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx SchedulerTx) error) error {
	sess, err := repo.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	tx := &mongoTx{repo: repo, owner: uuid.New().String()}

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(txOpts); err != nil {
			return err
		}
		if err := fn(sc, tx); err != nil {
			_ = sc.AbortTransaction(context.Background())
			return err
		}
		return sc.CommitTransaction(sc)
	})
	if err != nil {
		return database.TranslateError(err)
	}
	return nil
}

type mongoTx struct {
	repo  *MongoSchedulerRepo
	owner string
}

func (tx *mongoTx) lockOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	update := bson.M{"$set": bson.M{"lockOwner": tx.owner, "lockedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out); err != nil {
		return database.TranslateError(err)
	}
	return nil
}

func (tx *mongoTx) LockSlot(ctx context.Context, key models.SlotKey) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	filter := bson.M{"counsellorId": key.CounsellorID, "date": key.Date, "startTime": key.StartTime}
	if err := tx.lockOne(ctx, tx.repo.slotColl, filter, &slot); err != nil {
		return nil, fmt.Errorf("lock slot %s %s: %w", key.Date, key.StartTime, err)
	}
	return &slot, nil
}

func (tx *mongoTx) LockSlotByID(ctx context.Context, slotID string) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	if err := tx.lockOne(ctx, tx.repo.slotColl, bson.M{"id": slotID}, &slot); err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	return &slot, nil
}

func (tx *mongoTx) SetSlotBooked(ctx context.Context, slotID string, booked bool) error {
	update := bson.M{"$set": bson.M{"isBooked": booked, "updatedAt": time.Now()}}
	res, err := tx.repo.slotColl.UpdateOne(ctx, bson.M{"id": slotID}, update)
	if err != nil {
		return fmt.Errorf("set slot %s booked=%t: %w", slotID, booked, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("slot %s: %w", slotID, database.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) InsertBooking(ctx context.Context, booking *models.Booking) error {
	if _, err := tx.repo.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("insert booking failed: %w", database.TranslateError(err))
	}
	return nil
}

func (tx *mongoTx) UpdateBooking(ctx context.Context, reference string, upd models.BookingUpdate) error {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.PaymentStatus != nil {
		set["paymentStatus"] = *upd.PaymentStatus
	}
	if upd.SlotID != nil {
		set["slotId"] = *upd.SlotID
	}
	if upd.CancellationReason != nil {
		set["cancellationReason"] = *upd.CancellationReason
	}
	if upd.ConfirmedAt != nil {
		set["confirmedAt"] = *upd.ConfirmedAt
	}
	if upd.CancelledAt != nil {
		set["cancelledAt"] = *upd.CancelledAt
	}
	update := bson.M{"$set": set}
	if upd.DetachSlot {
		update["$unset"] = bson.M{"slotId": ""}
	}

	res, err := tx.repo.bookingColl.UpdateOne(ctx, bson.M{"reference": reference}, update)
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", reference, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("booking %s: %w", reference, database.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) SlotHolder(ctx context.Context, slotID string) (string, error) {
	var holder struct {
		Reference string `bson:"reference"`
	}
	opts := options.FindOne().SetProjection(bson.M{"reference": 1})
	err := tx.repo.bookingColl.FindOne(ctx, bson.M{"slotId": slotID}, opts).Decode(&holder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find holder of slot %s: %w", slotID, database.TranslateError(err))
	}
	return holder.Reference, nil
}

func (tx *mongoTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if _, err := tx.repo.paymentColl.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("insert payment failed: %w", database.TranslateError(err))
	}
	return nil
}

func (tx *mongoTx) SetPaymentOrder(ctx context.Context, paymentID, orderID string) error {
	update := bson.M{"$set": bson.M{"gatewayOrderId": orderID, "updatedAt": time.Now()}}
	res, err := tx.repo.paymentColl.UpdateOne(ctx, bson.M{"paymentId": paymentID}, update)
	if err != nil {
		return fmt.Errorf("set gateway order on %s: %w", paymentID, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, database.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) LockPayment(ctx context.Context, bookingReference string) (*models.Payment, *models.Booking, error) {
	var payment models.Payment
	if err := tx.lockOne(ctx, tx.repo.paymentColl, bson.M{"bookingReference": bookingReference}, &payment); err != nil {
		return nil, nil, fmt.Errorf("lock payment for %s: %w", bookingReference, err)
	}
	var booking models.Booking
	if err := tx.repo.bookingColl.FindOne(ctx, bson.M{"reference": bookingReference}).Decode(&booking); err != nil {
		return nil, nil, fmt.Errorf("booking %s: %w", bookingReference, database.TranslateError(err))
	}
	return &payment, &booking, nil
}

func (tx *mongoTx) MarkPaymentSuccess(ctx context.Context, paymentID string, success models.PaymentSuccess) error {
	update := bson.M{
		"$set": bson.M{
			"status":           models.PaymentSucceeded,
			"gatewayPaymentId": success.GatewayPaymentID,
			"gatewaySignature": success.Signature,
			"gatewayPayload":   success.Payload,
			"paidAt":           success.PaidAt,
			"updatedAt":        time.Now(),
		},
		"$unset": bson.M{"errorMessage": ""},
	}
	return tx.updatePayment(ctx, paymentID, update)
}

func (tx *mongoTx) MarkPaymentFailed(ctx context.Context, paymentID, message string) error {
	update := bson.M{"$set": bson.M{
		"status":       models.PaymentFailed,
		"errorMessage": message,
		"updatedAt":    time.Now(),
	}}
	return tx.updatePayment(ctx, paymentID, update)
}

func (tx *mongoTx) updatePayment(ctx context.Context, paymentID string, update bson.M) error {
	res, err := tx.repo.paymentColl.UpdateOne(ctx, bson.M{"paymentId": paymentID}, update)
	if err != nil {
		return fmt.Errorf("error updating payment %s: %w", paymentID, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, database.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) HasOtherPaidBooking(ctx context.Context, clientID, counsellorID, excludeReference string) (bool, error) {
	pair := bson.M{"clientId": clientID, "counsellorId": counsellorID}
	touch := bson.M{"$inc": bson.M{"confirmations": 1}, "$set": bson.M{"updatedAt": time.Now()}}
	if _, err := tx.repo.pairColl.UpdateOne(ctx, pair, touch, options.Update().SetUpsert(true)); err != nil {
		return false, fmt.Errorf("touch client pair: %w", database.TranslateError(err))
	}

	filter := bson.M{
		"clientId":      clientID,
		"counsellorId":  counsellorID,
		"paymentStatus": models.PaymentStatusPaid,
		"status":        bson.M{"$ne": models.BookingCancelled},
		"reference":     bson.M{"$ne": excludeReference},
	}
	n, err := tx.repo.bookingColl.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count paid bookings: %w", database.TranslateError(err))
	}
	return n > 0, nil
}

func (tx *mongoTx) IncClientSessions(ctx context.Context, clientID string, lastSession time.Time) error {
	update := bson.M{
		"$inc": bson.M{"totalSessions": 1},
		"$set": bson.M{"lastSessionDate": lastSession, "updatedAt": time.Now()},
	}
	res, err := tx.repo.clientColl.UpdateOne(ctx, bson.M{"id": clientID}, update)
	if err != nil {
		return fmt.Errorf("increment client %s sessions: %w", clientID, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("client %s: %w", clientID, database.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) IncCounsellorCounters(ctx context.Context, counsellorID string, sessions, clients int) error {
	update := bson.M{
		"$inc": bson.M{"totalSessions": sessions, "totalClients": clients},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := tx.repo.counsellorColl.UpdateOne(ctx, bson.M{"id": counsellorID}, update)
	if err != nil {
		return fmt.Errorf("increment counsellor %s counters: %w", counsellorID, database.TranslateError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("counsellor %s: %w", counsellorID, database.ErrNotFound)
	}
	return nil
}
