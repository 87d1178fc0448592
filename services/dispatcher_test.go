package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/pagecraft/action-service/models"
)

// --- Stub collaborators ---

type stubOrders struct {
	createCalls []*models.OrderRequest
	cancelCalls []string
	createErr   error
	cancelErr   error
}

func (s *stubOrders) CreatePendingOrder(ctx context.Context, order *models.OrderRequest) error {
	s.createCalls = append(s.createCalls, order)
	return s.createErr
}

func (s *stubOrders) CancelPendingOrder(ctx context.Context, orderID string) error {
	s.cancelCalls = append(s.cancelCalls, orderID)
	return s.cancelErr
}

type stubPayments struct {
	calls  []*models.PaymentSessionRequest
	payURL string
	err    error
	panics bool
}

func (s *stubPayments) CreateSession(ctx context.Context, session *models.PaymentSessionRequest) (string, error) {
	if s.panics {
		panic("payment client blew up")
	}
	s.calls = append(s.calls, session)
	return s.payURL, s.err
}

type stubEvents struct {
	events []models.CheckoutEvent
	err    error
}

func (s *stubEvents) Publish(ctx context.Context, event models.CheckoutEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func newTestDispatcher(orders *stubOrders, payments *stubPayments, events *stubEvents) *Dispatcher {
	return NewDispatcher(orders, payments, NewMemoryAttemptGuard(), events, DispatcherConfig{
		DownloadBaseURL: "https://pages.example.com/download",
		SiteOrigin:      "https://pages.example.com",
		Language:        "en",
		PaymentMethod:   "gateway",
	}, zap.NewNop())
}

func checkoutAction(productID string, amount float64) *models.ActionDescriptor {
	return &models.ActionDescriptor{
		Type:      models.ActionCheckout,
		ProductID: productID,
		Amount:    &amount,
	}
}

func emailFields(email, name string) []models.FormField {
	fields := []models.FormField{{Name: "email", Value: email}}
	if name != "" {
		fields = append(fields, models.FormField{Name: "name", Value: name})
	}
	return fields
}

// --- Routing ---

func TestDispatchEditModeIsInert(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{payURL: "https://pay.example.com/s1"}
	d := newTestDispatcher(orders, payments, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action:   checkoutAction("P1", 49),
		EditMode: true,
		Fields:   emailFields("a@b.com", "Ana"),
	})

	assert.Equal(t, EffectNone, result.Effect)
	assert.Empty(t, orders.createCalls)
	assert.Empty(t, payments.calls)
}

func TestDispatchNilActionIsInert(t *testing.T) {
	d := newTestDispatcher(&stubOrders{}, &stubPayments{}, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{Action: nil})

	assert.Equal(t, EffectNone, result.Effect)
}

func TestDispatchUnknownTypeIsInert(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{}
	d := newTestDispatcher(orders, payments, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{Type: "open_modal"},
	})

	assert.Equal(t, EffectNone, result.Effect)
	assert.Empty(t, orders.createCalls)
	assert.Empty(t, payments.calls)
}

func TestDispatchOpenLink(t *testing.T) {
	d := newTestDispatcher(&stubOrders{}, &stubPayments{}, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{Type: models.ActionOpenLink, URL: "example.com", NewTab: true},
	})

	assert.Equal(t, EffectNavigate, result.Effect)
	assert.Equal(t, "https://example.com", result.URL)
	assert.True(t, result.NewTab)
}

func TestDispatchScroll(t *testing.T) {
	orders := &stubOrders{}
	d := newTestDispatcher(orders, &stubPayments{}, &stubEvents{})

	// A target that no longer exists on the page must degrade silently:
	// the dispatcher still answers a scroll effect, never an error.
	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{Type: models.ActionScroll, TargetID: "missing-id"},
	})

	assert.Equal(t, EffectScroll, result.Effect)
	assert.Equal(t, "missing-id", result.TargetID)
	assert.Nil(t, result.Notice)
	assert.Empty(t, orders.createCalls)
}

func TestNormalizeLinkURL(t *testing.T) {
	cases := map[string]string{
		"example.com":          "https://example.com",
		"https://example.com":  "https://example.com",
		"http://example.com":   "http://example.com",
		"HTTPS://EXAMPLE.COM":  "HTTPS://EXAMPLE.COM",
		"  example.com/page  ": "https://example.com/page",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeLinkURL(input), "input %q", input)
	}

	// Idempotence
	for input := range cases {
		once := NormalizeLinkURL(input)
		assert.Equal(t, once, NormalizeLinkURL(once))
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(29990), ToMinorUnits(29.99))
	assert.Equal(t, int64(49000), ToMinorUnits(49))
	assert.Equal(t, int64(0), ToMinorUnits(0))
	assert.Equal(t, int64(1235), ToMinorUnits(1.2345))
}

// --- Checkout sequence ---

func TestCheckoutHappyPath(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{payURL: "https://pay.example.com/s1"}
	events := &stubEvents{}
	d := newTestDispatcher(orders, payments, events)

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: emailFields("a@b.com", "Ana"),
	})

	assert.Equal(t, EffectRedirect, result.Effect)
	assert.Equal(t, "https://pay.example.com/s1", result.URL)

	assert.Len(t, orders.createCalls, 1)
	order := orders.createCalls[0]
	_, err := uuid.Parse(order.OrderID)
	assert.NoError(t, err, "order id must be a freshly generated uuid")
	assert.Nil(t, order.BuyerID)
	assert.True(t, order.IsGuestPurchase)
	assert.Equal(t, "a@b.com", order.BuyerEmail)
	assert.Equal(t, "Ana", order.BuyerName)
	assert.Len(t, order.CartItems, 1)
	assert.Equal(t, "P1", order.CartItems[0].ProductID)
	assert.Equal(t, 1, order.CartItems[0].Quantity)

	assert.Len(t, payments.calls, 1)
	session := payments.calls[0]
	assert.Equal(t, int64(49000), session.Amount)
	assert.Equal(t, order.OrderID, session.OrderID)
	assert.Contains(t, session.SuccessURL, "orderId="+order.OrderID)
	assert.Contains(t, session.SuccessURL, "productId=P1")
	assert.Equal(t, "https://pages.example.com", session.FailURL)

	assert.Len(t, events.events, 1)
	assert.Equal(t, "checkout.completed", events.events[0].Event)
}

func TestCheckoutMissingEmailMakesNoNetworkCalls(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{}
	d := newTestDispatcher(orders, payments, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: []models.FormField{{Name: "name", Value: "Ana"}},
	})

	assert.Equal(t, EffectNotice, result.Effect)
	assert.Equal(t, NoticeValidation, result.Notice.Kind)
	assert.Equal(t, msgMissingEmail, result.Notice.Message)
	assert.Empty(t, orders.createCalls)
	assert.Empty(t, payments.calls)
}

func TestCheckoutInvalidEmail(t *testing.T) {
	d := newTestDispatcher(&stubOrders{}, &stubPayments{}, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: emailFields("not-an-email", ""),
	})

	assert.Equal(t, NoticeValidation, result.Notice.Kind)
	assert.Equal(t, msgInvalidEmail, result.Notice.Message)
}

func TestCheckoutMissingProductIsConfigError(t *testing.T) {
	orders := &stubOrders{}
	d := newTestDispatcher(orders, &stubPayments{}, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("", 49),
		Fields: emailFields("a@b.com", ""),
	})

	assert.Equal(t, EffectNotice, result.Effect)
	assert.Equal(t, NoticeConfigError, result.Notice.Kind)
	assert.Empty(t, orders.createCalls)
}

func TestCheckoutMissingAmountDefaultsToZero(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{payURL: "https://pay.example.com/s1"}
	d := newTestDispatcher(orders, payments, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{Type: models.ActionCheckout, ProductID: "P1"},
		Fields: emailFields("a@b.com", ""),
	})

	assert.Equal(t, EffectRedirect, result.Effect)
	assert.Equal(t, int64(0), payments.calls[0].Amount)
}

func TestCheckoutRequireAmountRejectsZero(t *testing.T) {
	orders := &stubOrders{}
	d := NewDispatcher(orders, &stubPayments{}, NewMemoryAttemptGuard(), nil, DispatcherConfig{
		DownloadBaseURL: "https://pages.example.com/download",
		SiteOrigin:      "https://pages.example.com",
		RequireAmount:   true,
	}, zap.NewNop())

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{Type: models.ActionCheckout, ProductID: "P1"},
		Fields: emailFields("a@b.com", ""),
	})

	assert.Equal(t, NoticeConfigError, result.Notice.Kind)
	assert.Empty(t, orders.createCalls)
}

func TestCheckoutOrderFailureShortCircuits(t *testing.T) {
	orders := &stubOrders{createErr: assert.AnError}
	payments := &stubPayments{payURL: "https://pay.example.com/s1"}
	events := &stubEvents{}
	d := newTestDispatcher(orders, payments, events)

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: emailFields("a@b.com", "Ana"),
	})

	assert.Equal(t, NoticeOrderFailed, result.Notice.Kind)
	assert.Empty(t, payments.calls, "payment service must not be called after an order failure")
	assert.Len(t, events.events, 1)
	assert.Equal(t, "checkout.failed", events.events[0].Event)
	assert.Equal(t, "order_failed", events.events[0].Reason)
}

func TestCheckoutPaymentFailureCancelsOrder(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{err: assert.AnError}
	d := newTestDispatcher(orders, payments, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: emailFields("a@b.com", ""),
	})

	assert.Equal(t, NoticePaymentFailed, result.Notice.Kind)
	assert.Len(t, orders.createCalls, 1)
	assert.Equal(t, []string{orders.createCalls[0].OrderID}, orders.cancelCalls,
		"the pending order must be compensated when no session could be opened")
}

func TestCheckoutInFlightAttemptIsRejected(t *testing.T) {
	orders := &stubOrders{}
	guard := NewMemoryAttemptGuard()
	d := NewDispatcher(orders, &stubPayments{}, guard, nil, DispatcherConfig{
		DownloadBaseURL: "https://pages.example.com/download",
		SiteOrigin:      "https://pages.example.com",
	}, zap.NewNop())

	attemptID := uuid.NewString()
	started, err := guard.Begin(context.Background(), attemptID)
	assert.NoError(t, err)
	assert.True(t, started)

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action:    checkoutAction("P1", 49),
		AttemptID: attemptID,
		Fields:    emailFields("a@b.com", ""),
	})

	assert.Equal(t, NoticeBusy, result.Notice.Kind)
	assert.Empty(t, orders.createCalls)
}

func TestCheckoutRetryReusesOrderID(t *testing.T) {
	orders := &stubOrders{createErr: assert.AnError}
	d := newTestDispatcher(orders, &stubPayments{payURL: "https://pay.example.com/s1"}, &stubEvents{})

	attemptID := uuid.NewString()
	req := DispatchRequest{
		Action:    checkoutAction("P1", 49),
		AttemptID: attemptID,
		Fields:    emailFields("a@b.com", ""),
	}

	d.Dispatch(context.Background(), req)
	orders.createErr = nil
	result := d.Dispatch(context.Background(), req)

	assert.Equal(t, EffectRedirect, result.Effect)
	assert.Len(t, orders.createCalls, 2)
	assert.Equal(t, orders.createCalls[0].OrderID, orders.createCalls[1].OrderID,
		"a retry of the same attempt must replay the same order id")
}

func TestCheckoutExternalCheckoutURLBypassesFlow(t *testing.T) {
	orders := &stubOrders{}
	d := newTestDispatcher(orders, &stubPayments{}, &stubEvents{})

	result := d.Dispatch(context.Background(), DispatchRequest{
		Action: &models.ActionDescriptor{
			Type:        models.ActionCheckout,
			ProductID:   "P1",
			CheckoutURL: "shop.example.com/buy",
		},
	})

	assert.Equal(t, EffectNavigate, result.Effect)
	assert.Equal(t, "https://shop.example.com/buy", result.URL)
	assert.Empty(t, orders.createCalls)
}

func TestCheckoutBuyerNameFallsBackToEmailLocalPart(t *testing.T) {
	orders := &stubOrders{}
	d := newTestDispatcher(orders, &stubPayments{payURL: "https://pay.example.com/s1"}, &stubEvents{})

	d.Dispatch(context.Background(), DispatchRequest{
		Action: checkoutAction("P1", 49),
		Fields: emailFields("ana.m@b.com", ""),
	})

	assert.Equal(t, "ana.m", orders.createCalls[0].BuyerName)
}

func TestCheckoutPanicIsContained(t *testing.T) {
	d := newTestDispatcher(&stubOrders{}, &stubPayments{panics: true}, &stubEvents{})

	var result *DispatchResult
	assert.NotPanics(t, func() {
		result = d.Dispatch(context.Background(), DispatchRequest{
			Action: checkoutAction("P1", 49),
			Fields: emailFields("a@b.com", ""),
		})
	})

	assert.Equal(t, NoticeInternal, result.Notice.Kind)
}

func TestMintOrderID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := MintOrderID()
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.False(t, strings.Contains(id, " "))
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
