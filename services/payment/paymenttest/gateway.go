// Package paymenttest provides an in-process payment.Gateway for tests.
package paymenttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mindbridge/models"
	"mindbridge/services/payment"
	"mindbridge/utils"
)

const SigningSecret = "test-signing-secret"

// Gateway records created orders and signs with SigningSecret.
type Gateway struct {
	payment.Signer

	mu     sync.Mutex
	Orders []payment.OrderRequest
	// Err, when set, is returned by CreateOrder.
	Err error
	// Delay blocks CreateOrder until it passes or ctx ends.
	Delay time.Duration
}

func NewGateway() *Gateway {
	return &Gateway{Signer: payment.NewSigner(SigningSecret)}
}

func (g *Gateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*models.GatewayOrder, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, utils.GatewayServiceError("Payment service timed out. Please try again.", ctx.Err())
		}
	}
	if req.AmountMinor < payment.MinimumAmountMinor {
		return nil, utils.ValidationError("Amount below gateway minimum.")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Orders = append(g.Orders, req)
	return &models.GatewayOrder{
		ID:       fmt.Sprintf("pi_test_%d", len(g.Orders)),
		Amount:   req.AmountMinor,
		Currency: strings.ToUpper(req.Currency),
	}, nil
}

func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	return g.Verify(orderID, paymentID, signature)
}

func (g *Gateway) PublicKey() string { return "pk_test" }

// OrderCount returns how many orders were created.
func (g *Gateway) OrderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Orders)
}
