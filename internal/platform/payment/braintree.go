package payment

import (
	"context"
	"fmt"

	"github.com/braintree-go/braintree-go"
	"github.com/google/uuid"

	"github.com/diagnosis/bistro-api/pkg/config"
)

type clientTokenAPI interface {
	Generate(ctx context.Context) (string, error)
}

// BraintreeGateway hands the browser a client token; the amount is charged
// later against the nonce the drop-in UI produces.
type BraintreeGateway struct {
	tokens clientTokenAPI
}

func NewBraintreeGateway(cfg config.BraintreeConfig) *BraintreeGateway {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}
	bt := braintree.New(env, cfg.MerchantID, cfg.PublicKey, cfg.PrivateKey)
	return &BraintreeGateway{tokens: bt.ClientToken()}
}

func (g *BraintreeGateway) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	token, err := g.tokens.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("braintree client token: %w", err)
	}
	return &Intent{ID: "bt_" + uuid.NewString(), ClientSecret: token}, nil
}

var _ Gateway = (*BraintreeGateway)(nil)
