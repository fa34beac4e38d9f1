package common

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10", "10", true},
		{"10.50", "10.5", true},
		{"10,50", "10.5", true},
		{" 6.26 ", "6.26", true},
		{"0", "", false},
		{"-5", "", false},
		{"abc", "", false},
		{"10.505", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "input %q: got %s", tt.in, got)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "129.90 ₽", FormatMoney(decimal.RequireFromString("129.9")))
	assert.Equal(t, "0.00 ₽", FormatMoney(decimal.Zero))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1050), MinorUnits(decimal.RequireFromString("10.50")))
	assert.Equal(t, int64(100), MinorUnits(decimal.NewFromInt(1)))
	assert.Equal(t, int64(2990), MinorUnits(decimal.RequireFromString("29.90")))
}

func TestPluralizeDays(t *testing.T) {
	assert.Equal(t, "день", PluralizeDays(1))
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "дней", PluralizeDays(11))
	assert.Equal(t, "день", PluralizeDays(21))
	assert.Equal(t, "дней", PluralizeDays(30))
}

func TestPluralizeOrders(t *testing.T) {
	assert.Equal(t, "заказ", PluralizeOrders(1))
	assert.Equal(t, "заказа", PluralizeOrders(2))
	assert.Equal(t, "заказов", PluralizeOrders(12))
}
