package booking

import (
	"errors"

	"mindbridge/database"
	"mindbridge/utils"
)

const slotTakenMessage = "This slot has already been booked. Please choose another time."

// translateTxError maps storage errors escaping the reservation transaction.
func translateTxError(err error) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrLockConflict), errors.Is(err, database.ErrDuplicate):
		return utils.ConflictError(slotTakenMessage)
	default:
		return utils.InternalError("Unable to create booking. Please try again later.", err)
	}
}
