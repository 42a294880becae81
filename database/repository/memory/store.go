// Package memory is an in-process implementation of the repositories, used
// by tests and by STORE_DRIVER=memory for local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindbridge/database"
	"mindbridge/models"
)

// Store keeps every collection in maps guarded by mu. Transactions stage
// their writes and apply them under mu on commit.
type Store struct {
	mu          sync.RWMutex
	slots       map[string]models.AvailabilitySlot
	slotKeys    map[models.SlotKey]string
	bookings    map[string]models.Booking
	payments    map[string]models.Payment
	paymentRefs map[string]string
	counsellors map[string]models.Counsellor
	clients     map[string]models.Client

	locks *lockTable
}

func NewStore() *Store {
	return &Store{
		slots:       make(map[string]models.AvailabilitySlot),
		slotKeys:    make(map[models.SlotKey]string),
		bookings:    make(map[string]models.Booking),
		payments:    make(map[string]models.Payment),
		paymentRefs: make(map[string]string),
		counsellors: make(map[string]models.Counsellor),
		clients:     make(map[string]models.Client),
		locks:       newLockTable(),
	}
}

// PutCounsellor upserts a counsellor profile.
func (s *Store) PutCounsellor(c models.Counsellor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counsellors[c.ID] = c
}

// PutClient upserts a client profile.
func (s *Store) PutClient(c models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// --- AccountRepository ---

func (s *Store) GetCounsellor(_ context.Context, id string) (*models.Counsellor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counsellors[id]
	if !ok {
		return nil, fmt.Errorf("counsellor %s: %w", id, database.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) GetClient(_ context.Context, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, database.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) UpdateCounsellorAvailability(_ context.Context, id string, update models.CounsellorAvailabilityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counsellors[id]
	if !ok {
		return fmt.Errorf("counsellor %s: %w", id, database.ErrNotFound)
	}
	c.DefaultSessionDuration = update.DefaultSessionDuration
	c.DefaultBreakDuration = update.DefaultBreakDuration
	c.IsAvailable = update.IsAvailable
	if update.AvailableFrom != "" {
		c.AvailableFrom = update.AvailableFrom
	}
	if update.AvailableTo != "" {
		c.AvailableTo = update.AvailableTo
	}
	c.UpdatedAt = time.Now()
	s.counsellors[id] = c
	return nil
}

// --- TimeSlotRepository ---

func (s *Store) ListRange(_ context.Context, counsellorID, from, to string) ([]models.AvailabilitySlot, error) {
	return s.collectSlots(func(slot models.AvailabilitySlot) bool {
		return slot.CounsellorID == counsellorID &&
			(from == "" || slot.Date >= from) &&
			(to == "" || slot.Date <= to)
	}), nil
}

func (s *Store) ListOpenByDate(_ context.Context, counsellorID, date string) ([]models.AvailabilitySlot, error) {
	return s.collectSlots(func(slot models.AvailabilitySlot) bool {
		return slot.CounsellorID == counsellorID && slot.Date == date && !slot.IsBooked
	}), nil
}

func (s *Store) collectSlots(match func(models.AvailabilitySlot) bool) []models.AvailabilitySlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.AvailabilitySlot{}
	for _, slot := range s.slots {
		if match(slot) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (s *Store) CreateMany(_ context.Context, slots []models.AvailabilitySlot) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[models.SlotKey]bool, len(slots))
	for _, slot := range slots {
		k := slot.Key()
		if _, exists := s.slotKeys[k]; exists || batch[k] {
			return nil, fmt.Errorf("slot %s %s: %w", k.Date, k.StartTime, database.ErrDuplicate)
		}
		batch[k] = true
	}

	now := time.Now()
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.ID == "" {
			slot.ID = uuid.New().String()
		}
		slot.IsBooked = false
		slot.CreatedAt = now
		slot.UpdatedAt = now
		s.slots[slot.ID] = slot
		s.slotKeys[slot.Key()] = slot.ID
		ids = append(ids, slot.ID)
	}
	return ids, nil
}

// UpdateShape waits for the slot's lock so an open reservation's staged copy
// cannot overwrite the new shape on commit.
func (s *Store) UpdateShape(ctx context.Context, slotID, endTime string, durationMinutes int) error {
	if err := s.locks.acquire(ctx, slotLockKey(slotID)); err != nil {
		return err
	}
	defer s.locks.release(slotLockKey(slotID))
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return database.ErrNotFound
	}
	slot.EndTime = endTime
	slot.DurationMinutes = durationMinutes
	slot.UpdatedAt = time.Now()
	s.slots[slotID] = slot
	return nil
}

// DeleteUnbooked takes each slot's lock in turn so that a slot held by an
// open reservation is only judged after that reservation settles.
func (s *Store) DeleteUnbooked(ctx context.Context, counsellorID string, slotIDs []string) (int64, error) {
	var deleted int64
	for _, id := range slotIDs {
		if err := s.locks.acquire(ctx, slotLockKey(id)); err != nil {
			return deleted, err
		}
		s.mu.Lock()
		slot, ok := s.slots[id]
		if ok && slot.CounsellorID == counsellorID && !slot.IsBooked {
			delete(s.slots, id)
			delete(s.slotKeys, slot.Key())
			deleted++
		}
		s.mu.Unlock()
		s.locks.release(slotLockKey(id))
	}
	return deleted, nil
}

// --- SchedulerRepository reads ---

func (s *Store) GetBooking(_ context.Context, reference string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[reference]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", reference, database.ErrNotFound)
	}
	return &b, nil
}

func (s *Store) GetPaymentByBooking(_ context.Context, reference string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.paymentRefs[reference]
	if !ok {
		return nil, fmt.Errorf("payment for booking %s: %w", reference, database.ErrNotFound)
	}
	p := s.payments[id]
	return &p, nil
}

// GetSlot returns a committed slot by ID.
func (s *Store) GetSlot(id string) (models.AvailabilitySlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	return slot, ok
}
