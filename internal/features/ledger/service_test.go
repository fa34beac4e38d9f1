package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/shop-bot/internal/config"
)

// fakeStore записывает аргументы последнего вызова, чтобы проверить,
// что сервис передаёт их репозиторию без искажений.
type fakeStore struct {
	purchaseUserID    int64
	purchaseProductID int64
	purchaseQuantity  int
	purchaseCreds     string
	purchaseErr       error

	confirmRef  string
	confirmRate decimal.Decimal

	redeemCode string

	giftCode   string
	giftAmount decimal.Decimal
	giftErr    error
}

func (f *fakeStore) Purchase(_ context.Context, userID, productID int64, quantity int, credentials string) (*Order, error) {
	f.purchaseUserID = userID
	f.purchaseProductID = productID
	f.purchaseQuantity = quantity
	f.purchaseCreds = credentials
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return &Order{ID: 7, UserID: userID, ProductID: productID, Quantity: quantity,
		TotalPrice: decimal.RequireFromString("99.90"), ProductName: "Тестовый товар"}, nil
}

func (f *fakeStore) ConfirmRecharge(_ context.Context, paymentRef string, commissionRate decimal.Decimal) (*RechargeCredit, error) {
	f.confirmRef = paymentRef
	f.confirmRate = commissionRate
	return &RechargeCredit{RechargeID: 1, UserID: 42, Amount: decimal.RequireFromString("100.00")}, nil
}

func (f *fakeStore) RedeemGiftCard(_ context.Context, _ int64, code string) (decimal.Decimal, error) {
	f.redeemCode = code
	return decimal.RequireFromString("50.00"), nil
}

func (f *fakeStore) CreateGiftCard(_ context.Context, code string, amount decimal.Decimal) error {
	f.giftCode = code
	f.giftAmount = amount
	return f.giftErr
}

func (f *fakeStore) GetUserOrders(_ context.Context, _ int64) ([]*Order, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AffiliateCommission: decimal.RequireFromString("0.5"),
		MinRecharge:         decimal.RequireFromString("1.00"),
	}
}

func TestServicePurchaseSingleUnit(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testConfig(t))

	order, err := svc.Purchase(context.Background(), 42, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(42), store.purchaseUserID)
	assert.Equal(t, int64(3), store.purchaseProductID)
	assert.Equal(t, 1, store.purchaseQuantity, "покупка всегда на одну единицу")
	assert.Contains(t, store.purchaseCreds, "Логин:")
	assert.Contains(t, store.purchaseCreds, "Пароль:")
	assert.Equal(t, int64(7), order.ID)
}

func TestServiceConfirmRechargePassesCommission(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testConfig(t))

	credit, err := svc.ConfirmRecharge(context.Background(), "pi_abc123")
	require.NoError(t, err)

	assert.Equal(t, "pi_abc123", store.confirmRef)
	assert.True(t, store.confirmRate.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, int64(42), credit.UserID)
}

func TestServiceRedeemGiftCardTrimsCode(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testConfig(t))

	amount, err := svc.RedeemGiftCard(context.Background(), 42, "  GIFT-ABCDEF123456  ")
	require.NoError(t, err)
	assert.Equal(t, "GIFT-ABCDEF123456", store.redeemCode)
	assert.True(t, amount.Equal(decimal.RequireFromString("50.00")))
}

func TestServiceRedeemGiftCardRejectsEmpty(t *testing.T) {
	svc := NewService(&fakeStore{}, testConfig(t))

	_, err := svc.RedeemGiftCard(context.Background(), 42, "   ")
	assert.Error(t, err)
}

func TestServiceCreateGiftCardFormat(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testConfig(t))

	code, err := svc.CreateGiftCard(context.Background(), decimal.RequireFromString("250.00"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "GIFT-"))
	assert.Len(t, code, len("GIFT-")+12)
	assert.Equal(t, strings.ToUpper(code), code)
	assert.True(t, store.giftAmount.Equal(decimal.RequireFromString("250.00")))
}

func TestGiftCodesUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := newGiftCode()
		_, dup := seen[code]
		require.False(t, dup, "сгенерирован повторяющийся код: %s", code)
		seen[code] = struct{}{}
	}
}
