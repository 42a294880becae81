package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/utils"
)

// StripeConfig carries the credentials of the Stripe account.
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	SigningSecret  string
}

// StripeGateway creates PaymentIntents as gateway orders.
type StripeGateway struct {
	api            *client.API
	signer         Signer
	publishableKey string
	webhookSecret  string
	logger         *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		api:            client.New(cfg.SecretKey, nil),
		signer:         NewSigner(cfg.SigningSecret),
		publishableKey: cfg.PublishableKey,
		webhookSecret:  cfg.WebhookSecret,
		logger:         logger,
	}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*models.GatewayOrder, error) {
	if req.AmountMinor < MinimumAmountMinor {
		return nil, utils.ValidationError(fmt.Sprintf("Amount must be at least %s.", models.FormatMinor(MinimumAmountMinor)))
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if req.Receipt != "" {
		params.SetIdempotencyKey(req.Receipt)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		classified := classifyStripeError(err)
		g.logger.Warn("Gateway order creation failed",
			zap.String("receipt", req.Receipt),
			zap.Int64("amount", req.AmountMinor),
			zap.Error(err))
		return nil, classified
	}

	g.logger.Info("Gateway order created",
		zap.String("order", intent.ID),
		zap.String("receipt", req.Receipt))
	return &models.GatewayOrder{
		ID:       intent.ID,
		Amount:   intent.Amount,
		Currency: strings.ToUpper(string(intent.Currency)),
	}, nil
}

func (g *StripeGateway) VerifySignature(orderID, paymentID, signature string) error {
	return g.signer.Verify(orderID, paymentID, signature)
}

func (g *StripeGateway) PublicKey() string {
	return g.publishableKey
}

// classifyStripeError separates caller-fixable rejections from retryable outages.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.Type == stripe.ErrorTypeAPI {
			return utils.GatewayServiceError("Payment service is temporarily unavailable. Please try again.", err)
		}
		msg := stripeErr.Msg
		if msg == "" {
			msg = "Payment gateway rejected the order."
		}
		return utils.GatewayBadRequestError(msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return utils.GatewayServiceError("Payment service timed out. Please try again.", err)
	}
	return utils.GatewayServiceError("Payment service is temporarily unavailable. Please try again.", err)
}
