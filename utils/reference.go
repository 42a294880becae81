package utils

import (
	"strings"

	"github.com/google/uuid"
)

func hexID(n int) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:n])
}

// NewBookingReference returns a human-readable booking reference like "MBK-3F9A0C12DE".
func NewBookingReference() string {
	return "MBK-" + hexID(10)
}

// NewPaymentID returns an internal payment identifier like "PAY-0A1B2C3D4E5F".
func NewPaymentID() string {
	return "PAY-" + hexID(12)
}
