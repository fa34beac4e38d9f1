package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/ledger"
)

type noopConfirmer struct{ calls int }

func (c *noopConfirmer) ConfirmFromWebhook(context.Context, string) (*ledger.RechargeCredit, error) {
	c.calls++
	return &ledger.RechargeCredit{}, nil
}

type noopNotifier struct{}

func (noopNotifier) SendMessageToUser(int64, string) {}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	confirmer := &noopConfirmer{}
	srv := NewServer(&config.Config{
		HTTPAddr:            ":0",
		StripeWebhookSecret: "whsec_test",
	}, confirmer, noopNotifier{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe",
		strings.NewReader(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, confirmer.calls, "без подписи до зачисления доходить нельзя")
}

func TestStripeWebhookRequiresPost(t *testing.T) {
	srv := NewServer(&config.Config{
		HTTPAddr:            ":0",
		StripeWebhookSecret: "whsec_test",
	}, &noopConfirmer{}, noopNotifier{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/stripe", nil)
	rec := httptest.NewRecorder()

	srv.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
