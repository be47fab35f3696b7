package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK STORE (rides, drivers, payments, transactions)
// ──────────────────────────────────────────────

// MockStore is an in-memory stand-in for PostgreSQL. Transactions are
// serialized, which models the row locks every dispatch operation takes.
// Writes are staged per transaction and become visible only on commit.
type MockStore struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	rides    map[string]*domain.Ride
	drivers  map[string]*domain.Driver
	payments map[string]*domain.Payment // keyed by ride ID
	lockLog  []string

	// Counters for verification
	TxCount                 int32
	CommitCount             int32
	RollbackCount           int32
	UpdateAvailabilityCount int32
	UpdatePaymentCount      int32

	// Error injection
	UpdateRideError         error
	UpdateAvailabilityError error
	UpdatePaymentError      error
	ListError               error
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		rides:    make(map[string]*domain.Ride),
		drivers:  make(map[string]*domain.Driver),
		payments: make(map[string]*domain.Payment),
	}
}

// AddRide adds a ride to the committed state.
func (s *MockStore) AddRide(ride *domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[ride.ID] = cloneRide(ride)
}

// AddDriver adds a driver to the committed state.
func (s *MockStore) AddDriver(driver *domain.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *driver
	s.drivers[driver.ID] = &d
}

// AddPayment adds a payment to the committed state.
func (s *MockStore) AddPayment(payment *domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.RideID] = clonePayment(payment)
}

// Ride returns a copy of the committed ride, or nil.
func (s *MockStore) Ride(id string) *domain.Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rides[id]; ok {
		return cloneRide(r)
	}
	return nil
}

// Driver returns a copy of the committed driver, or nil.
func (s *MockStore) Driver(id string) *domain.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.drivers[id]; ok {
		c := *d
		return &c
	}
	return nil
}

// Payment returns a copy of the committed payment of a ride, or nil.
func (s *MockStore) Payment(rideID string) *domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[rideID]; ok {
		return clonePayment(p)
	}
	return nil
}

// LockLog returns the row locks taken so far, e.g. "ride:r1", in order.
func (s *MockStore) LockLog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lockLog...)
}

// CheckInvariants verifies the driver link and availability invariants over
// the committed state.
func (s *MockStore) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assigned := make(map[string]int)
	for _, r := range s.rides {
		if (r.DriverID != "") != r.Status.HasDriver() {
			return fmt.Errorf("ride %s in %s has driver_id %q", r.ID, r.Status, r.DriverID)
		}
		if r.Status == domain.RideStatusAssigned {
			assigned[r.DriverID]++
		}
	}

	for id, d := range s.drivers {
		if assigned[id] > 1 {
			return fmt.Errorf("driver %s assigned to %d rides", id, assigned[id])
		}
		busy := d.Availability == domain.AvailabilityBusy
		if busy != (assigned[id] == 1) {
			return fmt.Errorf("driver %s is %s with %d assigned rides", id, d.Availability, assigned[id])
		}
	}

	return nil
}

// Repositories returns repositories reading the committed state.
func (s *MockStore) Repositories() repository.Repositories {
	return newTxView(s).repositories()
}

// WithinTx implements repository.Transactor.
func (s *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&s.TxCount, 1)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		atomic.AddInt32(&s.RollbackCount, 1)
		return err
	}

	view := newTxView(s)

	defer func() {
		if p := recover(); p != nil {
			atomic.AddInt32(&s.RollbackCount, 1)
			panic(p)
		}
	}()

	if err := fn(ctx, view.repositories()); err != nil {
		atomic.AddInt32(&s.RollbackCount, 1)
		return err
	}

	view.commit()
	atomic.AddInt32(&s.CommitCount, 1)
	return nil
}

var _ repository.Transactor = (*MockStore)(nil)

// txView stages the writes of one transaction.
type txView struct {
	s        *MockStore
	rides    map[string]*domain.Ride
	drivers  map[string]*domain.Driver
	payments map[string]*domain.Payment
}

func newTxView(s *MockStore) *txView {
	return &txView{
		s:        s,
		rides:    make(map[string]*domain.Ride),
		drivers:  make(map[string]*domain.Driver),
		payments: make(map[string]*domain.Payment),
	}
}

func (v *txView) repositories() repository.Repositories {
	return repository.Repositories{
		Rides:    &txRides{v: v},
		Drivers:  &txDrivers{v: v},
		Payments: &txPayments{v: v},
	}
}

func (v *txView) commit() {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for id, r := range v.rides {
		v.s.rides[id] = r
	}
	for id, d := range v.drivers {
		v.s.drivers[id] = d
	}
	for id, p := range v.payments {
		v.s.payments[id] = p
	}
}

func (v *txView) lock(entry string) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.lockLog = append(v.s.lockLog, entry)
}

func (v *txView) ride(id string) (*domain.Ride, bool) {
	if r, ok := v.rides[id]; ok {
		return cloneRide(r), true
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if r, ok := v.s.rides[id]; ok {
		return cloneRide(r), true
	}
	return nil, false
}

// allRides merges committed rides with staged ones.
func (v *txView) allRides() []*domain.Ride {
	v.s.mu.RLock()
	merged := make(map[string]*domain.Ride, len(v.s.rides))
	for id, r := range v.s.rides {
		merged[id] = r
	}
	v.s.mu.RUnlock()
	for id, r := range v.rides {
		merged[id] = r
	}

	result := make([]*domain.Ride, 0, len(merged))
	for _, r := range merged {
		result = append(result, cloneRide(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

type txRides struct{ v *txView }

func (r *txRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride, ok := r.v.ride(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (r *txRides) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	r.v.lock("ride:" + id)
	return r.GetByID(ctx, id)
}

func (r *txRides) Update(ctx context.Context, ride *domain.Ride) error {
	if r.v.s.UpdateRideError != nil {
		return r.v.s.UpdateRideError
	}
	if _, ok := r.v.ride(ride.ID); !ok {
		return repository.ErrNotFound
	}
	r.v.rides[ride.ID] = cloneRide(ride)
	return nil
}

func (r *txRides) ListByDriver(ctx context.Context, driverID string, statuses []domain.RideStatus) ([]*domain.Ride, error) {
	if r.v.s.ListError != nil {
		return nil, r.v.s.ListError
	}
	var result []*domain.Ride
	for _, ride := range r.v.allRides() {
		if ride.DriverID != driverID {
			continue
		}
		for _, s := range statuses {
			if ride.Status == s {
				result = append(result, ride)
				break
			}
		}
	}
	return result, nil
}

func (r *txRides) ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if r.v.s.ListError != nil {
		return nil, r.v.s.ListError
	}
	var ids []string
	for _, ride := range r.v.allRides() {
		if len(ids) == limit {
			break
		}
		if ride.Status == domain.RideStatusRequested && ride.CreatedAt.Before(cutoff) {
			ids = append(ids, ride.ID)
		}
	}
	return ids, nil
}

type txDrivers struct{ v *txView }

func (d *txDrivers) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	if driver, ok := d.v.drivers[id]; ok {
		c := *driver
		return &c, nil
	}
	d.v.s.mu.RLock()
	defer d.v.s.mu.RUnlock()
	driver, ok := d.v.s.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *driver
	return &c, nil
}

func (d *txDrivers) GetByIDForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	d.v.lock("driver:" + id)
	return d.GetByID(ctx, id)
}

func (d *txDrivers) UpdateAvailability(ctx context.Context, id string, availability domain.AvailabilityStatus) error {
	atomic.AddInt32(&d.v.s.UpdateAvailabilityCount, 1)
	if d.v.s.UpdateAvailabilityError != nil {
		return d.v.s.UpdateAvailabilityError
	}
	driver, err := d.GetByID(ctx, id)
	if err != nil {
		return err
	}
	driver.Availability = availability
	d.v.drivers[id] = driver
	return nil
}

type txPayments struct{ v *txView }

func (p *txPayments) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	if payment, ok := p.v.payments[rideID]; ok {
		return clonePayment(payment), nil
	}
	p.v.s.mu.RLock()
	defer p.v.s.mu.RUnlock()
	payment, ok := p.v.s.payments[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (p *txPayments) GetByRideIDForUpdate(ctx context.Context, rideID string) (*domain.Payment, error) {
	p.v.lock("payment:" + rideID)
	return p.GetByRideID(ctx, rideID)
}

func (p *txPayments) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&p.v.s.UpdatePaymentCount, 1)
	if p.v.s.UpdatePaymentError != nil {
		return p.v.s.UpdatePaymentError
	}
	if _, err := p.GetByRideID(ctx, payment.RideID); err != nil {
		return err
	}
	p.v.payments[payment.RideID] = clonePayment(payment)
	return nil
}

func cloneRide(r *domain.Ride) *domain.Ride {
	c := *r
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	if r.Decline != nil {
		d := *r.Decline
		c.Decline = &d
	}
	return &c
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.Details != nil {
		c.Details = make(map[string]string, len(p.Details))
		for k, v := range p.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockPaymentGateway is a mock payment gateway.
type MockPaymentGateway struct {
	mu sync.Mutex

	// Control behavior
	FailError error
	Delay     time.Duration

	// Counters
	AuthorizeCallCount int32
	lastRequest        *service.AuthorizeRequest
}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) Authorize(ctx context.Context, req service.AuthorizeRequest) (*service.AuthorizeResult, error) {
	atomic.AddInt32(&m.AuthorizeCallCount, 1)

	m.mu.Lock()
	m.lastRequest = &req
	failErr, delay := m.FailError, m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failErr != nil {
		return nil, failErr
	}
	return &service.AuthorizeResult{GatewayPaymentID: "gw-" + req.RideID}, nil
}

// SetFailure configures the gateway to fail with err.
func (m *MockPaymentGateway) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailError = err
}

// LastRequest returns the last authorize request, or nil.
func (m *MockPaymentGateway) LastRequest() *service.AuthorizeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Calls returns the number of authorize calls.
func (m *MockPaymentGateway) Calls() int {
	return int(atomic.LoadInt32(&m.AuthorizeCallCount))
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// Names returns the names of published events in order.
func (m *MockPublisher) Names() []events.Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]events.Name, len(m.events))
	for i, e := range m.events {
		names[i] = e.Name
	}
	return names
}

// Count returns how many events with the given name were published.
func (m *MockPublisher) Count(name events.Name) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

var _ events.Publisher = (*MockPublisher)(nil)

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory stand-in for the Redis cache store.
type MockCacheStore struct {
	mu        sync.Mutex
	rides     map[string]*redis.CachedRide
	reports   map[string]*domain.DriverReport
	available map[string]bool

	// Counters
	InvalidateRideCount   int32
	InvalidateReportCount int32
	InvalidateDriverCount int32
	ReportHits            int32

	// Error injection
	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		rides:     make(map[string]*redis.CachedRide),
		reports:   make(map[string]*domain.DriverReport),
		available: make(map[string]bool),
	}
}

func (m *MockCacheStore) GetRide(ctx context.Context, rideID string) (*redis.CachedRide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	if r, ok := m.rides[rideID]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *MockCacheStore) SetRide(ctx context.Context, ride *redis.CachedRide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ride
	m.rides[ride.ID] = &c
	return nil
}

func (m *MockCacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateRideCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

func (m *MockCacheStore) AddAvailableDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[driverID] = true
	return nil
}

func (m *MockCacheStore) RemoveAvailableDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.available, driverID)
	return nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.InvalidateDriverCount, 1)
	return nil
}

func (m *MockCacheStore) GetReport(ctx context.Context, driverID string) (*domain.DriverReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	if r, ok := m.reports[driverID]; ok {
		atomic.AddInt32(&m.ReportHits, 1)
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *MockCacheStore) SetReport(ctx context.Context, report *domain.DriverReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *report
	m.reports[report.DriverID] = &c
	return nil
}

func (m *MockCacheStore) InvalidateReport(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.InvalidateReportCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, driverID)
	return nil
}

// IsAvailable reports whether the driver is in the available set.
func (m *MockCacheStore) IsAvailable(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available[driverID]
}

// HasRide reports whether a ride is cached.
func (m *MockCacheStore) HasRide(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rides[rideID]
	return ok
}

var (
	_ redis.RideCacheInterface         = (*MockCacheStore)(nil)
	_ redis.AvailabilityCacheInterface = (*MockCacheStore)(nil)
	_ redis.ReportCacheInterface       = (*MockCacheStore)(nil)
)

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockGatewayDown = errors.New("mock: gateway unavailable")
	ErrMockDBFailure   = errors.New("mock: connection reset")
)
