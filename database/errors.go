package database

import (
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a looked-up document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrLockConflict is returned when another transaction holds the row being locked.
	ErrLockConflict = errors.New("record locked by a concurrent transaction")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
)

const writeConflictCode = 112

// TranslateError maps driver errors onto the repository sentinels.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrLockConflict) || errors.Is(err, ErrDuplicate) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(writeConflictCode) {
			return errors.Join(ErrLockConflict, err)
		}
	}
	return err
}

// LogIndexError reports a failed index build without aborting startup.
func LogIndexError(collection string, err error) {
	log.Printf("failed to ensure indexes on %s: %v", collection, err)
}
