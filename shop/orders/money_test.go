package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{50000, "RUB", "500.00 RUB"},
		{500, "rub", "5.00 RUB"},
		{1999, "USD", "19.99 USD"},
		{0, "RUB", "0.00 RUB"},
		{1500, "JPY", "1500 JPY"},
		{123, "", "1.23"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(tc.minor, tc.currency), "%d %s", tc.minor, tc.currency)
	}
	assert.Equal(t, "5.00 RUB", Order{Price: 500, Currency: "RUB"}.Amount())
	assert.True(t, MajorUnits(12345, "EUR").Equal(MajorUnits(12345, "RUB")))
}
