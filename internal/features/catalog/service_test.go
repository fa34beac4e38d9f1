package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductSpec(t *testing.T) {
	in, err := ParseProductSpec("Netflix Premium|Премиум-доступ|29.90|100|30")
	require.NoError(t, err)

	assert.Equal(t, "Netflix Premium", in.Name)
	assert.Equal(t, "Премиум-доступ", in.Description)
	assert.True(t, in.Price.Equal(decimal.RequireFromString("29.90")))
	assert.Equal(t, 100, in.Stock)
	assert.Equal(t, 30, in.WarrantyDays)
	assert.Equal(t, DefaultCategory, in.Category)
}

func TestParseProductSpecCommaPrice(t *testing.T) {
	in, err := ParseProductSpec("Spotify| без рекламы |19,90| 50 | 30 ")
	require.NoError(t, err)
	assert.True(t, in.Price.Equal(decimal.RequireFromString("19.90")))
	assert.Equal(t, "без рекламы", in.Description)
	assert.Equal(t, 50, in.Stock)
}

func TestParseProductSpecErrors(t *testing.T) {
	cases := []string{
		"",
		"Название|Описание|29.90|100",     // мало полей
		"|Описание|29.90|100|30",          // пустое название
		"X|Описание|бесплатно|100|30",     // цена не число
		"X|Описание|0|100|30",             // нулевая цена
		"X|Описание|29.90|-1|30",          // отрицательный остаток
		"X|Описание|29.90|100|-5",         // отрицательная гарантия
		"X|Описание|29.90|сто|30",         // остаток не число
	}
	for _, c := range cases {
		_, err := ParseProductSpec(c)
		assert.Error(t, err, "spec %q", c)
	}
}
