package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// BuildPaymentFailedBody builds the HTML body for a failed payment alert
func BuildPaymentFailedBody(orderID int64) string {
	content := fmt.Sprintf(`<p style="margin-top: 0;">The payment processor reported a failed or canceled payment.</p>
		%s
		<p>The order is now <strong>FAILED</strong>. Its stock stays reserved until the customer retries or cancels.</p>`,
		field("Order", fmt.Sprintf("#%d", orderID)))
	return layout("Payment failed", "#e5534b", content)
}

// BuildRefundCreatedBody builds the HTML body for a new refund request
func BuildRefundCreatedBody(refundID, paymentID int64, amount decimal.Decimal, reason string) string {
	if reason == "" {
		reason = "(none given)"
	}
	content := fmt.Sprintf(`<p style="margin-top: 0;">A refund was submitted to the payment processor and is awaiting confirmation.</p>
		%s%s%s%s`,
		field("Refund", fmt.Sprintf("#%d", refundID)),
		field("Payment", fmt.Sprintf("#%d", paymentID)),
		field("Amount", formatAmount(amount)),
		field("Reason", html.EscapeString(reason)))
	return layout("Refund requested", "#667eea", content)
}

// BuildPaymentRefundedBody builds the HTML body for a confirmed refund
func BuildPaymentRefundedBody(orderID, paymentID int64) string {
	content := fmt.Sprintf(`<p style="margin-top: 0;">The payment processor confirmed the refund.</p>
		%s%s`,
		field("Order", fmt.Sprintf("#%d", orderID)),
		field("Payment", fmt.Sprintf("#%d", paymentID)))
	return layout("Order refunded", "#2da44e", content)
}

func field(label, value string) string {
	return fmt.Sprintf(`<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 12px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">%s</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>`, label, value)
}

func layout(title, color, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: %s; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		%s

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This message was sent automatically by the order service.
		</p>
	</div>
</body>
</html>`, color, title, content)
}

// formatAmount formats an amount with comma separators and two decimals
func formatAmount(amount decimal.Decimal) string {
	str := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	if amount.IsNegative() {
		result.WriteString("-")
	}
	result.WriteString("$")

	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
		if len(whole) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(whole); i += 3 {
		result.WriteString(whole[i : i+3])
		if i+3 < len(whole) {
			result.WriteString(",")
		}
	}

	result.WriteString(".")
	result.WriteString(frac)
	return result.String()
}
