// Package payment wraps the card processor used to start a checkout.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/bistro-api/pkg/config"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Intent is what the browser needs to confirm a card payment.
type Intent struct {
	ID           string
	ClientSecret string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit price to cents, truncating any
// fraction of a cent.
func ToMinorUnits(price decimal.Decimal) (int64, error) {
	minor := price.Mul(hundred).IntPart()
	if minor <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, price.String())
	}
	return minor, nil
}

// New picks the gateway named by cfg.Provider.
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "stripe":
		if cfg.Stripe.SecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required for the stripe provider")
		}
		return NewStripeGateway(cfg.Stripe.SecretKey), nil
	case "braintree":
		if cfg.Braintree.MerchantID == "" || cfg.Braintree.PublicKey == "" || cfg.Braintree.PrivateKey == "" {
			return nil, errors.New("BRAINTREE_MERCHANT_ID, BRAINTREE_PUBLIC_KEY and BRAINTREE_PRIVATE_KEY are required for the braintree provider")
		}
		return NewBraintreeGateway(cfg.Braintree), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
}
