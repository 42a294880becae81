package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"mindbridge/utils"
)

var errSignatureMismatch = errors.New("signature mismatch")

// Signer computes checkout signatures as hex(HMAC-SHA256(secret, order_id|payment_id)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) Signer {
	return Signer{secret: []byte(secret)}
}

func (s Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s Signer) Verify(orderID, paymentID, signature string) error {
	if len(s.secret) == 0 {
		return utils.SignatureInvalidError("Payment verification failed. Please contact support.", errors.New("signing secret not configured"))
	}
	expected := s.Sign(orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return utils.SignatureInvalidError("Payment verification failed. Please contact support.", errSignatureMismatch)
	}
	return nil
}
