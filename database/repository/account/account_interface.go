package accountRepo

import (
	"context"

	"mindbridge/models"
)

// AccountRepository reads the client and counsellor profiles owned by the
// accounts service and writes the availability fields this service maintains.
type AccountRepository interface {
	// GetCounsellor retrieves a counsellor profile by ID.
	GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error)
	// GetClient retrieves a client profile by ID.
	GetClient(ctx context.Context, id string) (*models.Client, error)
	// UpdateCounsellorAvailability stores publish side effects on the counsellor profile.
	UpdateCounsellorAvailability(ctx context.Context, id string, update models.CounsellorAvailabilityUpdate) error
}
