package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/paymentsys/checkout-service/internal/checkout/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	mu          sync.Mutex
	createCalls int
	getCalls    int

	createErr error
	getErr    error

	// returned by GetCheckout, and used as the status of created checkouts
	status string
	links  []domain.Link

	lastCreate domain.CheckoutRequest
	nextID     int
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req domain.CheckoutRequest) (domain.ProviderCheckout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	g.lastCreate = req
	if g.createErr != nil {
		return domain.ProviderCheckout{}, g.createErr
	}
	g.nextID++
	status := g.status
	if status == "" {
		status = domain.CheckoutPending
	}
	return domain.ProviderCheckout{
		ID:        fmt.Sprintf("CHK-%d", g.nextID),
		Status:    status,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.OrderRef,
		Links:     g.links,
	}, nil
}

func (g *fakeGateway) GetCheckout(_ context.Context, checkoutID string) (domain.ProviderCheckout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return domain.ProviderCheckout{}, g.getErr
	}
	return domain.ProviderCheckout{ID: checkoutID, Status: g.status}, nil
}

// fakeStore implements PaymentRepository and OrderStore over maps. The
// transition is a real compare-and-swap under the mutex, with an optional
// delay before acquiring it to widen race windows in concurrency tests.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	payments map[string]domain.Payment // by order id

	transitionDelay time.Duration
	failUpsert      bool
	failOrderWrite  bool

	upserts           int
	transitionWrites  int
	orderStatusWrites int
	events            []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[string]domain.Order{},
		payments: map[string]domain.Payment{},
	}
}

func (s *fakeStore) addOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

func (s *fakeStore) GetOrder(_ context.Context, id string) (domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok, nil
}

func (s *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrderWrite {
		return errors.New("order table unavailable")
	}
	o, ok := s.orders[orderID]
	if !ok {
		return errors.New("order missing")
	}
	o.Status = status
	s.orders[orderID] = o
	s.orderStatusWrites++
	return nil
}

func (s *fakeStore) FindPaymentByOrder(_ context.Context, orderID string) (domain.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[orderID]
	return p, ok, nil
}

func (s *fakeStore) FindPaymentByCheckoutID(_ context.Context, checkoutID string) (domain.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.CheckoutID == checkoutID {
			return p, true, nil
		}
	}
	return domain.Payment{}, false, nil
}

func (s *fakeStore) UpsertPayment(_ context.Context, orderID string, amount float64, currency, checkoutID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert {
		return domain.Payment{}, &domain.StorageError{Op: "upsert payment", Err: errors.New("connection reset")}
	}
	now := time.Now().UTC()
	p, ok := s.payments[orderID]
	if !ok {
		p = domain.Payment{ID: fmt.Sprintf("pay-%s", orderID), OrderID: orderID, CreatedAt: now}
	}
	p.Amount = amount
	p.Currency = currency
	p.CheckoutID = checkoutID
	p.Status = domain.StatusPending
	p.UpdatedAt = now
	s.payments[orderID] = p
	s.upserts++
	return p, nil
}

func (s *fakeStore) TransitionPaymentStatus(_ context.Context, p domain.Payment, to domain.PaymentStatus, eventType string, _ []byte) (bool, error) {
	if s.transitionDelay > 0 {
		time.Sleep(s.transitionDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.payments[p.OrderID]
	if !ok || cur.Status != domain.StatusPending {
		return false, nil
	}
	cur.Status = to
	cur.UpdatedAt = time.Now().UTC()
	s.payments[p.OrderID] = cur
	s.transitionWrites++
	s.events = append(s.events, eventType)
	return true, nil
}

func (s *fakeStore) payment(orderID string) domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[orderID]
}

func (s *fakeStore) order(id string) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}
