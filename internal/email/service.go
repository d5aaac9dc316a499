package email

import (
	"fmt"

	jemail "github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendPaymentFailed tells the shop admin that a payment attempt failed
func (s *Service) SendPaymentFailed(to string, orderID int64) error {
	subject := fmt.Sprintf("[Payments] Payment failed for order #%d", orderID)
	return s.send(to, subject, BuildPaymentFailedBody(orderID))
}

// SendRefundCreated tells the shop admin that a refund was requested
func (s *Service) SendRefundCreated(to string, refundID, paymentID int64, amount decimal.Decimal, reason string) error {
	subject := fmt.Sprintf("[Refunds] Refund #%d requested", refundID)
	return s.send(to, subject, BuildRefundCreatedBody(refundID, paymentID, amount, reason))
}

// SendPaymentRefunded tells the shop admin that the processor confirmed a refund
func (s *Service) SendPaymentRefunded(to string, orderID, paymentID int64) error {
	subject := fmt.Sprintf("[Refunds] Order #%d refunded", orderID)
	return s.send(to, subject, BuildPaymentRefundedBody(orderID, paymentID))
}

func (s *Service) send(to, subject, body string) error {
	e := jemail.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return e.Send(addr, nil)
}
