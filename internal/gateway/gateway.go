package gateway

import "context"

// Checkout session mode and payment status constants mirroring the gateway's API.
const (
	ModePayment = "payment"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// EventCheckoutCompleted is the only webhook event type this service acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// LineItem describes a single purchasable item in a checkout session.
type LineItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	// UnitAmount is the price in the currency's minor unit (cents).
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Quantity   int    `json:"quantity"`
}

// CheckoutSessionParams are the parameters for creating a checkout session.
type CheckoutSessionParams struct {
	Mode              string     `json:"mode"`
	SuccessURL        string     `json:"success_url"`
	CancelURL         string     `json:"cancel_url"`
	CustomerEmail     string     `json:"customer_email"`
	ClientReferenceID string     `json:"client_reference_id"`
	LineItems         []LineItem `json:"line_items"`
}

// SessionPriceData is the pricing block the gateway echoes back on a
// session's line items.
type SessionPriceData struct {
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency,omitempty"`
}

// SessionLineItem is a line item as it appears on a stored session.
type SessionLineItem struct {
	PriceData SessionPriceData `json:"price_data"`
	Quantity  int              `json:"quantity,omitempty"`
}

// CheckoutSession is the gateway's representation of a created session.
type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Mode              string            `json:"mode"`
	CustomerEmail     string            `json:"customer_email"`
	ClientReferenceID string            `json:"client_reference_id"`
	LineItems         []SessionLineItem `json:"line_items,omitempty"`
	AmountTotal       int64             `json:"amount_total,omitempty"`
	PaymentStatus     string            `json:"payment_status"`
}

// UnitAmount returns the paid price in the minor currency unit. Webhook
// sessions carry it on the first line item's price_data; amount_total covers
// payloads delivered without expanded line items.
func (s *CheckoutSession) UnitAmount() int64 {
	if len(s.LineItems) > 0 {
		return s.LineItems[0].PriceData.UnitAmount
	}
	return s.AmountTotal
}

// WebhookEvent is the envelope the gateway posts to our webhook endpoint.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// Client creates checkout sessions on the payment gateway.
type Client interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
}
