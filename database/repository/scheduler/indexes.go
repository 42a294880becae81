package schedulerRepo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func bookingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_reference"),
		},
		// A slot is held by at most one booking. Failed bookings drop their slotId.
		{
			Keys: bson.D{{Key: "slotId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_slot_holder").
				SetPartialFilterExpression(bson.M{"slotId": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "counsellorId", Value: 1}, {Key: "paymentStatus", Value: 1}},
			Options: options.Index().SetName("pair_payment_status_idx"),
		},
	}
}

func paymentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "paymentId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_payment_id"),
		},
		{
			Keys:    bson.D{{Key: "bookingReference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_booking_payment"),
		},
	}
}

func pairIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "counsellorId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_pair"),
	}
}
