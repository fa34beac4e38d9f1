package payments

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/ledger"
)

type fakeRechargeStore struct {
	recharges map[string]*Recharge
	created   []*Recharge
}

func newFakeRechargeStore() *fakeRechargeStore {
	return &fakeRechargeStore{recharges: make(map[string]*Recharge)}
}

func (f *fakeRechargeStore) Create(_ context.Context, userID int64, amount decimal.Decimal, paymentRef string) (*Recharge, error) {
	r := &Recharge{
		ID:         int64(len(f.created) + 1),
		UserID:     userID,
		Amount:     amount,
		PaymentRef: paymentRef,
		Status:     RechargeStatusPending,
		CreatedAt:  time.Now(),
	}
	f.recharges[paymentRef] = r
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeRechargeStore) GetByRef(_ context.Context, paymentRef string) (*Recharge, error) {
	r, ok := f.recharges[paymentRef]
	if !ok {
		return nil, common.ErrRechargeNotFound
	}
	return r, nil
}

func (f *fakeRechargeStore) ListPending(_ context.Context, _ int) ([]*Recharge, error) {
	var out []*Recharge
	for _, r := range f.created {
		if r.Status == RechargeStatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRechargeStore) ExpireStale(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type fakeGateway struct {
	nextRef   string
	confirmed map[string]bool
	initErr   error
	checkErr  error
	initiated int
}

func (f *fakeGateway) Initiate(_ context.Context, _ int64, _ decimal.Decimal) (*Intent, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.initiated++
	return &Intent{Reference: f.nextRef, ClientSecret: "secret"}, nil
}

func (f *fakeGateway) Check(_ context.Context, reference string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.confirmed[reference], nil
}

// fakeCrediter имитирует идемпотентность леджера: повторное зачисление
// того же референса возвращает ErrRechargeAlreadyApplied.
type fakeCrediter struct {
	applied map[string]int
}

func newFakeCrediter() *fakeCrediter {
	return &fakeCrediter{applied: make(map[string]int)}
}

func (f *fakeCrediter) ConfirmRecharge(_ context.Context, paymentRef string) (*ledger.RechargeCredit, error) {
	f.applied[paymentRef]++
	if f.applied[paymentRef] > 1 {
		return nil, common.ErrRechargeAlreadyApplied
	}
	return &ledger.RechargeCredit{UserID: 42, Amount: decimal.RequireFromString("100.00")}, nil
}

func paymentsConfig() *config.Config {
	return &config.Config{
		MinRecharge: decimal.RequireFromString("50.00"),
		RechargeTTL: 30 * time.Minute,
	}
}

func TestInitiateRecharge(t *testing.T) {
	store := newFakeRechargeStore()
	gw := &fakeGateway{nextRef: "pi_1"}
	svc := NewService(store, gw, newFakeCrediter(), paymentsConfig())

	recharge, err := svc.InitiateRecharge(context.Background(), 42, "150,50")
	require.NoError(t, err)

	assert.Equal(t, "pi_1", recharge.PaymentRef)
	assert.True(t, recharge.Amount.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, RechargeStatusPending, recharge.Status)
}

func TestInitiateRechargeValidation(t *testing.T) {
	store := newFakeRechargeStore()
	gw := &fakeGateway{nextRef: "pi_1"}
	svc := NewService(store, gw, newFakeCrediter(), paymentsConfig())
	ctx := context.Background()

	_, err := svc.InitiateRecharge(ctx, 42, "сто рублей")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.InitiateRecharge(ctx, 42, "-5")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.InitiateRecharge(ctx, 42, "49.99")
	assert.ErrorIs(t, err, common.ErrAmountBelowMinimum)

	// Кривые суммы не должны доходить до провайдера
	assert.Zero(t, gw.initiated)
	assert.Empty(t, store.created)
}

func TestCheckAndConfirm(t *testing.T) {
	store := newFakeRechargeStore()
	gw := &fakeGateway{nextRef: "pi_1", confirmed: map[string]bool{}}
	credits := newFakeCrediter()
	svc := NewService(store, gw, credits, paymentsConfig())
	ctx := context.Background()

	_, err := svc.InitiateRecharge(ctx, 42, "100")
	require.NoError(t, err)

	// Не оплачено
	_, err = svc.CheckAndConfirm(ctx, "pi_1")
	assert.ErrorIs(t, err, common.ErrPaymentNotConfirmed)
	assert.Zero(t, credits.applied["pi_1"])

	// Оплачено
	gw.confirmed["pi_1"] = true
	credit, err := svc.CheckAndConfirm(ctx, "pi_1")
	require.NoError(t, err)
	assert.True(t, credit.Amount.Equal(decimal.RequireFromString("100.00")))

	// Неизвестный референс
	_, err = svc.CheckAndConfirm(ctx, "pi_unknown")
	assert.ErrorIs(t, err, common.ErrRechargeNotFound)
}

func TestCheckAndConfirmCompletedShortCircuits(t *testing.T) {
	store := newFakeRechargeStore()
	gw := &fakeGateway{nextRef: "pi_1", confirmed: map[string]bool{"pi_1": true}}
	credits := newFakeCrediter()
	svc := NewService(store, gw, credits, paymentsConfig())
	ctx := context.Background()

	_, err := svc.InitiateRecharge(ctx, 42, "100")
	require.NoError(t, err)
	store.recharges["pi_1"].Status = RechargeStatusCompleted

	_, err = svc.CheckAndConfirm(ctx, "pi_1")
	assert.ErrorIs(t, err, common.ErrRechargeAlreadyApplied)
	assert.Zero(t, credits.applied["pi_1"], "закрытая заявка не должна доходить до леджера")
}

func TestPollPendingConfirmsPaid(t *testing.T) {
	store := newFakeRechargeStore()
	gw := &fakeGateway{confirmed: map[string]bool{}}
	credits := newFakeCrediter()
	svc := NewService(store, gw, credits, paymentsConfig())
	ctx := context.Background()

	gw.nextRef = "pi_paid"
	_, err := svc.InitiateRecharge(ctx, 42, "100")
	require.NoError(t, err)
	gw.nextRef = "pi_unpaid"
	_, err = svc.InitiateRecharge(ctx, 43, "200")
	require.NoError(t, err)

	gw.confirmed["pi_paid"] = true
	svc.PollPending(ctx)

	assert.Equal(t, 1, credits.applied["pi_paid"])
	assert.Zero(t, credits.applied["pi_unpaid"])

	// Повторный круг не задваивает зачисление
	svc.PollPending(ctx)
	assert.Equal(t, 2, credits.applied["pi_paid"], "леджер сам отбил повтор")
}

func TestRefTail(t *testing.T) {
	assert.Equal(t, "abc", refTail("abc"))
	assert.Equal(t, "XYZ123", refTail("pi_3OqXYZ123"))
}
