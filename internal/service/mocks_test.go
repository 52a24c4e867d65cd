package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) SetSessionID(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.ProviderSessionID = sessionID
	}
	return nil
}

func (r *fakeOrderRepo) TransitionStatus(_ context.Context, id string, from, to models.OrderStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return 0, nil
	}
	o.Status = to
	return 1, nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id, providerPaymentID string, paidAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != models.StatusCreated {
		return 0, nil
	}
	o.Status = models.StatusPaidInCustody
	o.ProviderPaymentID = providerPaymentID
	o.PaidAt = &paidAt
	return 1, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]json.RawMessage
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]json.RawMessage)}
}

func (r *fakeEventRepo) Insert(_ context.Context, provider, eventID string, payload json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := provider + "|" + eventID
	if _, exists := r.events[key]; exists {
		return models.ErrDuplicateEvent
	}
	r.events[key] = payload
	return nil
}

func (r *fakeEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fakePaymentRepo struct {
	mu      sync.Mutex
	records []models.PaymentRecord
}

func (r *fakePaymentRepo) Insert(_ context.Context, rec *models.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.OrderID == rec.OrderID && existing.ProviderPaymentID == rec.ProviderPaymentID {
			return models.ErrDuplicatePayment
		}
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakePaymentRepo) ListByOrder(_ context.Context, orderID string) ([]models.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentRecord
	for _, rec := range r.records {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *fakeAuditRepo) Insert(_ context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) byAction(action string) []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	mu           sync.Mutex
	session      *models.CheckoutSession
	sessionErr   error
	payments     map[string]*models.PaymentInfo
	createCalls  int
	resolveCalls int
}

func (g *fakeGateway) CreateSession(_ context.Context, amount int64, currency, externalReference string) (*models.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	if g.session != nil {
		return g.session, nil
	}
	return &models.CheckoutSession{SessionID: "sess-" + externalReference, RedirectURL: "https://pay.example/" + externalReference}, nil
}

func (g *fakeGateway) ResolvePayment(_ context.Context, paymentID string) (*models.PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveCalls++
	info, ok := g.payments[paymentID]
	if !ok {
		return nil, &models.GatewayError{Op: "resolve_payment", Err: context.DeadlineExceeded}
	}
	cp := *info
	return &cp, nil
}

type fakeListings struct {
	listings map[string]*models.Listing
}

func (l *fakeListings) GetActiveListing(_ context.Context, listingID string) (*models.Listing, error) {
	listing, ok := l.listings[listingID]
	if !ok || !listing.Active {
		return nil, models.ErrListingNotFound
	}
	cp := *listing
	return &cp, nil
}

type publishedChange struct {
	orderID  string
	from, to models.OrderStatus
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []publishedChange
}

func (p *fakePublisher) PublishStateChange(_ context.Context, orderID string, from, to models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, publishedChange{orderID: orderID, from: from, to: to})
	return nil
}

type testEnv struct {
	engine   *Engine
	orders   *fakeOrderRepo
	events   *fakeEventRepo
	payments *fakePaymentRepo
	auditDB  *fakeAuditRepo
	audit    *AuditRecorder
	gateway  *fakeGateway
	listings *fakeListings
	pub      *fakePublisher
}

// flushAudit drains the async audit queue so entries can be asserted.
func (env *testEnv) flushAudit() {
	env.audit.Close()
}

func newTestEnv() *testEnv {
	orders := newFakeOrderRepo()
	eventsRepo := newFakeEventRepo()
	payments := &fakePaymentRepo{}
	auditDB := &fakeAuditRepo{}
	audit := NewAuditRecorder(auditDB, 64)
	audit.Start()
	gw := &fakeGateway{payments: make(map[string]*models.PaymentInfo)}
	listings := &fakeListings{listings: map[string]*models.Listing{
		"listing-1": {ID: "listing-1", SellerID: "seller-1", Price: 1000, Currency: "CLP", Active: true},
	}}
	pub := &fakePublisher{}

	engine := NewEngine(EngineDeps{
		Orders:    orders,
		Events:    eventsRepo,
		Payments:  payments,
		Gateway:   gw,
		Listings:  listings,
		Publisher: pub,
		Audit:     audit,
		Fees:      FeePolicy{RateBps: 600},
		Provider:  "mercadopago",
	})

	return &testEnv{
		engine:   engine,
		orders:   orders,
		events:   eventsRepo,
		payments: payments,
		auditDB:  auditDB,
		audit:    audit,
		gateway:  gw,
		listings: listings,
		pub:      pub,
	}
}
