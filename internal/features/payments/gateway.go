package payments

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"serotonyl.ru/shop-bot/internal/common"
)

// Gateway — платёжный провайдер глазами сервиса. Интерфейс узкий,
// чтобы в тестах его можно было подменить фейком.
type Gateway interface {
	// Initiate создаёт платёж у провайдера и возвращает его референс.
	Initiate(ctx context.Context, userID int64, amount decimal.Decimal) (*Intent, error)
	// Check возвращает true, если платёж подтверждён провайдером.
	Check(ctx context.Context, reference string) (bool, error)
}

// StripeGateway — Gateway поверх Stripe PaymentIntents.
type StripeGateway struct {
	api      *client.API
	currency string
}

// NewStripeGateway создаёт шлюз с ограниченным таймаутом HTTP-запросов:
// зависший провайдер не должен держать воркеры бота.
func NewStripeGateway(apiKey, currency string, timeout time.Duration) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})

	api := &client.API{}
	api.Init(apiKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &StripeGateway{api: api, currency: currency}
}

func (g *StripeGateway) Initiate(ctx context.Context, userID int64, amount decimal.Decimal) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(common.MinorUnits(amount)),
		Currency: stripe.String(g.currency),
	}
	params.AddMetadata("telegram_user_id", fmt.Sprintf("%d", userID))

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrGatewayUnavailable, err)
	}
	return &Intent{Reference: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) Check(ctx context.Context, reference string) (bool, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	intent, err := g.api.PaymentIntents.Get(reference, params)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrGatewayUnavailable, err)
	}
	return intent.Status == stripe.PaymentIntentStatusSucceeded, nil
}
