package models

import "time"

type OrderStatus string

const (
	StatusCreated          OrderStatus = "CREATED"
	StatusPaidInCustody    OrderStatus = "PAID_IN_CUSTODY"
	StatusDeliveredMarked  OrderStatus = "DELIVERED_MARKED"
	StatusConfirmedByBuyer OrderStatus = "CONFIRMED_BY_BUYER"
	StatusPayoutInitiated  OrderStatus = "PAYOUT_INITIATED"
	StatusPaidOut          OrderStatus = "PAID_OUT"
	StatusDisputeOpened    OrderStatus = "DISPUTE_OPENED"
	StatusCancelled        OrderStatus = "CANCELLED"
)

// Order is the engine's unit of state. Amounts are integer minor currency
// units; Total = Price + PlatformFee always holds.
type Order struct {
	ID                string      `json:"id"`
	ListingID         string      `json:"listing_id"`
	BuyerID           string      `json:"buyer_id"`
	SellerID          string      `json:"seller_id"`
	Price             int64       `json:"price"`
	PlatformFee       int64       `json:"platform_fee"`
	Total             int64       `json:"total"`
	Currency          string      `json:"currency"`
	Status            OrderStatus `json:"status"`
	ProviderSessionID string      `json:"provider_session_id,omitempty"`
	ProviderPaymentID string      `json:"provider_payment_id,omitempty"`
	PaidAt            *time.Time  `json:"paid_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Listing is the slice of the listing collaborator's record the engine needs
// to price an order.
type Listing struct {
	ID       string `json:"listing_id"`
	SellerID string `json:"seller_id"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Active   bool   `json:"active"`
}

// CheckoutSession is what the payment gateway hands back when a checkout is
// opened for an order.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentInfo is the gateway's authoritative answer for a payment id. The
// webhook body itself is untrusted; only this resolution is ground truth.
type PaymentInfo struct {
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

const PaymentStatusApproved = "approved"
