package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	mrand "math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagecraft/action-service/models"
)

// Effects the page runtime knows how to perform.
const (
	EffectNone     = "none"
	EffectNavigate = "navigate"
	EffectScroll   = "scroll"
	EffectRedirect = "redirect"
	EffectNotice   = "notice"
)

// Notice kinds, one per failure class of the checkout sequence.
const (
	NoticeConfigError   = "config_error"
	NoticeValidation    = "validation_error"
	NoticeOrderFailed   = "order_failed"
	NoticePaymentFailed = "payment_failed"
	NoticeBusy          = "busy"
	NoticeInternal      = "internal_error"
)

const (
	msgConfigError   = "This button isn't set up yet. Please contact support."
	msgMissingEmail  = "Please enter your email."
	msgInvalidEmail  = "Please enter a valid email address."
	msgOrderFailed   = "We couldn't create your order. Please try again."
	msgPaymentFailed = "We couldn't open a payment session. Please try again."
	msgBusy          = "Your previous attempt is still being processed."
	msgInternal      = "Something went wrong. Please try again."
)

// DispatchRequest is one button click as reported by the page runtime.
type DispatchRequest struct {
	Action    *models.ActionDescriptor
	AttemptID string
	EditMode  bool
	Fields    []models.FormField
}

// DispatchResult tells the page runtime what effect to perform.
type DispatchResult struct {
	Effect   string  `json:"effect"`
	URL      string  `json:"url,omitempty"`
	NewTab   bool    `json:"new_tab,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Notice   *Notice `json:"notice,omitempty"`
}

// Notice is a blocking user-facing message.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OrderAPI is the order-service contract the dispatcher consumes.
type OrderAPI interface {
	CreatePendingOrder(ctx context.Context, order *models.OrderRequest) error
	CancelPendingOrder(ctx context.Context, orderID string) error
}

// PaymentAPI is the payment-service contract the dispatcher consumes.
type PaymentAPI interface {
	CreateSession(ctx context.Context, session *models.PaymentSessionRequest) (string, error)
}

// EventPublisher receives checkout lifecycle events, best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event models.CheckoutEvent) error
}

// DispatcherConfig consolidates the per-deployment knobs that used to drift
// across button variants.
type DispatcherConfig struct {
	// Absolute URL the gateway sends the buyer to after paying; it gets
	// orderId and productId query parameters appended.
	DownloadBaseURL string
	// Where the gateway sends the buyer when payment fails.
	SiteOrigin string
	Language   string
	// Recorded on the order; the gateway choice happens server-side.
	PaymentMethod string
	// When set, a checkout button with a zero or missing amount is treated
	// as misconfigured instead of proceeding with 0.
	RequireAmount bool
}

// Dispatcher routes an ActionDescriptor to its effect and owns the checkout
// sequence end to end.
type Dispatcher struct {
	orders   OrderAPI
	payments PaymentAPI
	guard    AttemptGuard
	events   EventPublisher
	cfg      DispatcherConfig
	logger   *zap.Logger
}

func NewDispatcher(orders OrderAPI, payments PaymentAPI, guard AttemptGuard, events EventPublisher, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		orders:   orders,
		payments: payments,
		guard:    guard,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

var noEffect = &DispatchResult{Effect: EffectNone}

// Dispatch interprets one click. Edit mode and nil or unrecognized actions
// are no-ops; buttons stay inert while the page is being edited.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) *DispatchResult {
	if req.EditMode || req.Action == nil {
		return noEffect
	}

	switch req.Action.Type {
	case models.ActionOpenLink:
		if req.Action.URL == "" {
			return noEffect
		}
		return &DispatchResult{
			Effect: EffectNavigate,
			URL:    NormalizeLinkURL(req.Action.URL),
			NewTab: req.Action.NewTab,
		}
	case models.ActionScroll:
		if req.Action.TargetID == "" {
			return noEffect
		}
		// A target that no longer exists degrades silently at the page.
		return &DispatchResult{Effect: EffectScroll, TargetID: req.Action.TargetID}
	case models.ActionCheckout:
		return d.runCheckout(ctx, req)
	default:
		d.logger.Debug("ignoring action with unknown type", zap.String("type", req.Action.Type))
		return noEffect
	}
}

// runCheckout drives the checkout sequence: collect, validate, create the
// pending order, open a payment session, redirect. Every failure resolves
// locally into a notice; nothing propagates to the caller.
func (d *Dispatcher) runCheckout(ctx context.Context, req DispatchRequest) (result *DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("checkout sequence panicked", zap.Any("panic", r))
			result = notice(NoticeInternal, msgInternal)
		}
	}()

	action := req.Action
	productID := strings.TrimSpace(action.ProductID)
	if productID == "" {
		d.logger.Warn("checkout button has no product configured")
		return notice(NoticeConfigError, msgConfigError)
	}

	// An externally hosted checkout page bypasses the whole sequence.
	if action.CheckoutURL != "" {
		return &DispatchResult{Effect: EffectNavigate, URL: NormalizeLinkURL(action.CheckoutURL)}
	}

	var amount float64
	if action.Amount != nil {
		amount = *action.Amount
	}
	if d.cfg.RequireAmount && amount <= 0 {
		d.logger.Warn("checkout button has no amount configured", zap.String("product_id", productID))
		return notice(NoticeConfigError, msgConfigError)
	}

	form := CollectForm(req.Fields)
	if err := ValidateForm(form); err != nil {
		if err == ErrMissingEmail {
			return notice(NoticeValidation, msgMissingEmail)
		}
		return notice(NoticeValidation, msgInvalidEmail)
	}
	email := strings.TrimSpace(form["email"])
	buyer := models.Buyer{Email: email, Name: buyerName(form, email)}

	attemptID := req.AttemptID
	if attemptID == "" {
		// Without a page-minted attempt id a retry cannot be correlated,
		// so each click becomes its own attempt.
		attemptID = MintOrderID()
	}

	started, err := d.guard.Begin(ctx, attemptID)
	if err != nil {
		// Fail open: a broken guard must not take checkout down with it.
		d.logger.Warn("attempt guard unavailable", zap.Error(err))
		started = true
	}
	if !started {
		return notice(NoticeBusy, msgBusy)
	}
	defer d.guard.Finish(ctx, attemptID)

	orderID, err := d.guard.OrderID(ctx, attemptID, MintOrderID)
	if err != nil {
		d.logger.Warn("attempt guard unavailable, minting unscoped order id", zap.Error(err))
		orderID = MintOrderID()
	}

	minorAmount := ToMinorUnits(amount)

	order := &models.OrderRequest{
		OrderID:              orderID,
		BuyerID:              nil,
		BuyerEmail:           buyer.Email,
		BuyerName:            buyer.Name,
		GlobalSubmissionData: form,
		Language:             d.cfg.Language,
		IsGuestPurchase:      true,
		CartItems: []models.CartItem{
			{ProductID: productID, Quantity: 1, SubmissionData: form},
		},
		PaymentMethod: d.cfg.PaymentMethod,
	}
	if err := d.orders.CreatePendingOrder(ctx, order); err != nil {
		d.logger.Error("create pending order failed",
			zap.String("order_id", orderID),
			zap.String("product_id", productID),
			zap.Error(err))
		d.publish(ctx, checkoutFailed(attemptID, orderID, productID, minorAmount, "order_failed"))
		return notice(NoticeOrderFailed, msgOrderFailed)
	}

	session := &models.PaymentSessionRequest{
		Amount:     minorAmount,
		OrderID:    orderID,
		SuccessURL: d.successURL(orderID, productID),
		FailURL:    d.cfg.SiteOrigin,
		User:       buyer,
	}
	payURL, err := d.payments.CreateSession(ctx, session)
	if err != nil {
		d.logger.Error("create payment session failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		if cancelErr := d.orders.CancelPendingOrder(ctx, orderID); cancelErr != nil {
			d.logger.Warn("pending order left without payment session",
				zap.String("order_id", orderID),
				zap.Error(cancelErr))
		}
		d.publish(ctx, checkoutFailed(attemptID, orderID, productID, minorAmount, "payment_failed"))
		return notice(NoticePaymentFailed, msgPaymentFailed)
	}

	d.publish(ctx, models.CheckoutEvent{
		Event:     "checkout.completed",
		AttemptID: attemptID,
		OrderID:   orderID,
		ProductID: productID,
		Amount:    minorAmount,
		Timestamp: time.Now(),
	})
	return &DispatchResult{Effect: EffectRedirect, URL: payURL}
}

func (d *Dispatcher) successURL(orderID, productID string) string {
	query := url.Values{}
	query.Set("orderId", orderID)
	query.Set("productId", productID)
	return fmt.Sprintf("%s?%s", d.cfg.DownloadBaseURL, query.Encode())
}

// publish emits a lifecycle event best-effort; a broker outage never fails
// the buyer's request.
func (d *Dispatcher) publish(ctx context.Context, event models.CheckoutEvent) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(ctx, event); err != nil {
		d.logger.Warn("checkout event publish failed",
			zap.String("event", event.Event),
			zap.Error(err))
	}
}

func checkoutFailed(attemptID, orderID, productID string, amount int64, reason string) models.CheckoutEvent {
	return models.CheckoutEvent{
		Event:     "checkout.failed",
		AttemptID: attemptID,
		OrderID:   orderID,
		ProductID: productID,
		Amount:    amount,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func notice(kind, message string) *DispatchResult {
	return &DispatchResult{
		Effect: EffectNotice,
		Notice: &Notice{Kind: kind, Message: message},
	}
}

// NormalizeLinkURL prefixes https:// when the string carries no http(s)
// scheme. Idempotent: normalizing an already-normalized URL is a no-op.
func NormalizeLinkURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}

// ToMinorUnits converts a major-unit decimal amount to the gateway's
// integer minor units. The currency here carries three decimal places.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 1000))
}

// MintOrderID returns a random v4 UUID. When the secure source is
// unavailable it degrades to a pseudo-random id rather than failing the
// purchase.
func MintOrderID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], mrand.Uint64())
	binary.BigEndian.PutUint64(b[8:], mrand.Uint64())
	b[6] = b[6]&0x0f | 0x40
	b[8] = b[8]&0x3f | 0x80
	return uuid.UUID(b).String()
}

// buyerName prefers the form's name fields and falls back to the local part
// of the buyer's email.
func buyerName(form models.FormSnapshot, email string) string {
	if name := strings.TrimSpace(form["name"]); name != "" {
		return name
	}
	if name := strings.TrimSpace(form["full_name"]); name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
