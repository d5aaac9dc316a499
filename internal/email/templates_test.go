package email

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"25.5", "$25.50"},
		{"999.99", "$999.99"},
		{"1000", "$1,000.00"},
		{"1234567.89", "$1,234,567.89"},
		{"-12.30", "-$12.30"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestBuildRefundCreatedBody(t *testing.T) {
	body := BuildRefundCreatedBody(3, 9, decimal.RequireFromString("25.00"), "<script>")

	assert.Contains(t, body, "#3")
	assert.Contains(t, body, "#9")
	assert.Contains(t, body, "$25.00")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestBuildRefundCreatedBody_NoReason(t *testing.T) {
	body := BuildRefundCreatedBody(3, 9, decimal.NewFromInt(1), "")

	assert.Contains(t, body, "(none given)")
}

func TestBuildPaymentFailedBody(t *testing.T) {
	body := BuildPaymentFailedBody(42)

	assert.Contains(t, body, "Payment failed")
	assert.Contains(t, body, "#42")
}
