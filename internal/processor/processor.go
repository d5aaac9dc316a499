// Package processor defines the boundary to the external payment processor:
// intent and refund creation, and verified webhook events.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// IntentParams describes a charge attempt in minor units
type IntentParams struct {
	AmountMinor    int64
	Currency       string
	OrderID        int64
	IdempotencyKey string
}

// Intent is the processor's handle for a charge attempt
type Intent struct {
	ID           string
	ClientSecret string
}

// RefundParams describes a refund against an intent
type RefundParams struct {
	IntentID       string
	AmountMinor    int64
	Reason         string
	IdempotencyKey string
}

// Refund is the processor's handle for an issued refund
type Refund struct {
	ID     string
	Status string
}

// Client issues intents and refunds. One long-lived instance is built at
// startup and handed to the components that need it.
type Client interface {
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)
}

// Verifier authenticates a raw webhook payload against its signature header
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// Event types the system reacts to
const (
	EventIntentSucceeded    = "payment_intent.succeeded"
	EventIntentFailed       = "payment_intent.payment_failed"
	EventIntentCanceled     = "payment_intent.canceled"
	EventChargeRefunded     = "charge.refunded"
	EventChargeRefundUpdate = "charge.refund.updated"
	EventRefundUpdated      = "refund.updated"
	EventRefundFailed       = "refund.failed"
)

// MetadataOrderID is the intent metadata key correlating an intent to an order
const MetadataOrderID = "orderId"

// Event is a verified webhook event; Object is the raw data.object
type Event struct {
	ID      string
	Type    string
	Object  json.RawMessage
	Created time.Time
}

// PaymentIntentObject is the subset of a payment intent the handlers read
type PaymentIntentObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// OrderID returns the correlated order id from the intent metadata
func (pi PaymentIntentObject) OrderID() (int64, error) {
	raw, ok := pi.Metadata[MetadataOrderID]
	if !ok || raw == "" {
		return 0, fmt.Errorf("intent %s has no %s metadata", pi.ID, MetadataOrderID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("intent %s has non-numeric %s %q", pi.ID, MetadataOrderID, raw)
	}
	return id, nil
}

// ChargeObject is the subset of a charge the handlers read
type ChargeObject struct {
	ID            string       `json:"id"`
	PaymentIntent ExpandableID `json:"payment_intent"`
}

// RefundObject is the subset of a refund the handlers read
type RefundObject struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	PaymentIntent ExpandableID `json:"payment_intent"`
}

// ExpandableID decodes a reference that is either an id string or an
// expanded object carrying an "id" field.
type ExpandableID string

func (e *ExpandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = ExpandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = ExpandableID(obj.ID)
	return nil
}

func (e *Event) PaymentIntent() (*PaymentIntentObject, error) {
	var pi PaymentIntentObject
	if err := json.Unmarshal(e.Object, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent of %s: %w", e.ID, err)
	}
	return &pi, nil
}

func (e *Event) Charge() (*ChargeObject, error) {
	var ch ChargeObject
	if err := json.Unmarshal(e.Object, &ch); err != nil {
		return nil, fmt.Errorf("decode charge of %s: %w", e.ID, err)
	}
	return &ch, nil
}

func (e *Event) Refund() (*RefundObject, error) {
	var r RefundObject
	if err := json.Unmarshal(e.Object, &r); err != nil {
		return nil, fmt.Errorf("decode refund of %s: %w", e.ID, err)
	}
	return &r, nil
}
