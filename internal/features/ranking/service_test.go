package ranking

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRanks struct {
	products   []*ProductRank
	rechargers []*UserRank
	richest    []*UserRank
	buyers     []*BuyerRank
}

func (f *fakeRanks) TopProductsThisMonth(context.Context, int) ([]*ProductRank, error) {
	return f.products, nil
}
func (f *fakeRanks) TopRechargers(context.Context, int) ([]*UserRank, error) {
	return f.rechargers, nil
}
func (f *fakeRanks) Richest(context.Context, int) ([]*UserRank, error) {
	return f.richest, nil
}
func (f *fakeRanks) TopBuyers(context.Context, int) ([]*BuyerRank, error) {
	return f.buyers, nil
}

func TestProductsTextMedals(t *testing.T) {
	svc := NewService(&fakeRanks{products: []*ProductRank{
		{Name: "Netflix", Sales: 12},
		{Name: "Spotify", Sales: 8},
		{Name: "YouTube", Sales: 5},
		{Name: "Disney+", Sales: 1},
	}})

	text, err := svc.ProductsText(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "🥇 Netflix — 12 шт.")
	assert.Contains(t, text, "🥈 Spotify — 8 шт.")
	assert.Contains(t, text, "🥉 YouTube — 5 шт.")
	assert.Contains(t, text, "4. Disney+ — 1 шт.")
}

func TestProductsTextEmpty(t *testing.T) {
	svc := NewService(&fakeRanks{})
	text, err := svc.ProductsText(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "не было продаж")
}

func TestRechargersTextNames(t *testing.T) {
	svc := NewService(&fakeRanks{rechargers: []*UserRank{
		{UserID: 1, Username: "ivan", Amount: decimal.RequireFromString("5000.00")},
		{UserID: 99, Username: "", Amount: decimal.RequireFromString("100.00")},
	}})

	text, err := svc.RechargersText(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "🥇 @ivan — 5000.00 ₽")
	assert.Contains(t, text, "🥈 ID99 — 100.00 ₽")
}

func TestBuyersTextPluralized(t *testing.T) {
	svc := NewService(&fakeRanks{buyers: []*BuyerRank{
		{UserID: 1, Username: "ivan", Orders: 21},
		{UserID: 2, Username: "olga", Orders: 3},
	}})

	text, err := svc.BuyersText(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "21 заказ\n")
	assert.Contains(t, text, "3 заказа")
}
