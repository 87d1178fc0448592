package models

import "time"

// CartItem is a single purchased product inside an OrderRequest. Landing
// pages sell exactly one product per button, so quantity is always 1.
type CartItem struct {
	ProductID      string       `json:"product_id"`
	Quantity       int          `json:"quantity"`
	SubmissionData FormSnapshot `json:"submission_data"`
}

// OrderRequest is the payload for OrderService.createPendingOrder. OrderID
// is minted client-side before the call, which makes the operation
// idempotent under a resubmission of the same attempt.
type OrderRequest struct {
	OrderID              string       `json:"order_id"`
	BuyerID              *string      `json:"buyer_id"` // always nil: guest purchase
	BuyerEmail           string       `json:"buyer_email"`
	BuyerName            string       `json:"buyer_name"`
	GlobalSubmissionData FormSnapshot `json:"global_submission_data"`
	Language             string       `json:"language"`
	IsGuestPurchase      bool         `json:"is_guest_purchase"`
	CartItems            []CartItem   `json:"cart_items"`
	PaymentMethod        string       `json:"payment_method"`
}

// Buyer identifies the purchaser to the payment gateway.
type Buyer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PaymentSessionRequest is the payload for PaymentService.createSession.
// Amount is in minor currency units (1/1000 of a major unit here).
type PaymentSessionRequest struct {
	Amount     int64  `json:"amount"`
	OrderID    string `json:"order_id"`
	SuccessURL string `json:"success_url"`
	FailURL    string `json:"fail_url"`
	User       Buyer  `json:"user"`
}

// CheckoutEvent is published after a checkout attempt terminates.
type CheckoutEvent struct {
	Event     string    `json:"event"` // "checkout.completed" or "checkout.failed"
	AttemptID string    `json:"attempt_id"`
	OrderID   string    `json:"order_id,omitempty"`
	ProductID string    `json:"product_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
