package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

func TestFilterAmountInput(t *testing.T) {
	tests := []struct {
		name string
		prev string
		raw  string
		want string
	}{
		{name: "digits kept", prev: "", raw: "125", want: "125"},
		{name: "strips symbols", prev: "", raw: "R$ 1.23", want: "1.23"},
		{name: "partial decimal kept", prev: "1", raw: "1.", want: "1."},
		{name: "leading dot kept", prev: "", raw: ".5", want: ".5"},
		{name: "two dots rejected", prev: "1.2", raw: "1.2.", want: "1.2"},
		{name: "three fraction digits rejected", prev: "9.99", raw: "9.999", want: "9.99"},
		{name: "ceiling accepted", prev: "100000000", raw: "1000000000", want: "1000000000"},
		{name: "above ceiling rejected", prev: "100000000", raw: "1000000000.01", want: "100000000"},
		{name: "letters only clears", prev: "5", raw: "abc", want: ""},
		{name: "empty clears", prev: "5", raw: "", want: ""},
		{name: "negative sign stripped", prev: "", raw: "-40", want: "40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.FilterAmountInput(tt.prev, tt.raw))
		})
	}
}

func TestFilterAmountInput_OutputAlwaysWithinPolicy(t *testing.T) {
	inputs := []string{"0", "00.10", "999999999.99", "1e9", "12,50", "..", "7.123", "1000000000.1", "٣٣"}
	prev := ""
	for _, raw := range inputs {
		got := service.FilterAmountInput(prev, raw)
		for _, r := range got {
			assert.True(t, (r >= '0' && r <= '9') || r == '.', "unexpected rune %q in %q", r, got)
		}
		if v, err := decimal.NewFromString(got); err == nil {
			assert.True(t, v.LessThanOrEqual(service.MaxAmount), "%q above ceiling", got)
		}
		prev = got
	}
}

func TestParseAndFormatAmount(t *testing.T) {
	d, err := service.ParseAmount(" 42.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("42.5")))

	_, err = service.ParseAmount("")
	assert.Error(t, err)

	assert.Equal(t, "42.5", service.FormatAmount(decimal.RequireFromString("42.50")))
	assert.Equal(t, "1000", service.FormatAmount(decimal.NewFromInt(1000)))
	assert.Equal(t, "0.13", service.FormatAmount(decimal.RequireFromString("0.125")))
}
