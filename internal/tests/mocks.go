package tests

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// MOCK SNAPSHOT STORE
// ──────────────────────────────────────────────

// MockSnapshotStore is a mock implementation of repository.SnapshotStore.
type MockSnapshotStore struct {
	mu   sync.Mutex
	snap *repository.Snapshot

	// Counters for verification
	LoadCallCount int32
	SaveCallCount int32

	// Error injection
	LoadError error
	SaveError error
}

// NewMockSnapshotStore creates a new mock store holding snap (may be nil).
func NewMockSnapshotStore(snap *repository.Snapshot) *MockSnapshotStore {
	if snap == nil {
		snap = &repository.Snapshot{}
	}
	return &MockSnapshotStore{snap: snap}
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	atomic.AddInt32(&m.LoadCallCount, 1)
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap), nil
}

func (m *MockSnapshotStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = cloneSnapshot(snap)
	return nil
}

// Saved returns a copy of the last snapshot written.
func (m *MockSnapshotStore) Saved() *repository.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap)
}

// Saves returns how many times Save was called.
func (m *MockSnapshotStore) Saves() int {
	return int(atomic.LoadInt32(&m.SaveCallCount))
}

func cloneSnapshot(snap *repository.Snapshot) *repository.Snapshot {
	out := &repository.Snapshot{}
	for _, a := range snap.Accounts {
		out.Accounts = append(out.Accounts, a.Clone())
	}
	for _, r := range snap.Rides {
		out.Rides = append(out.Rides, r.Clone())
	}
	return out
}

// ──────────────────────────────────────────────
// ENGINE FIXTURE
// ──────────────────────────────────────────────

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an opened engine over a fresh mock store.
func newTestEngine() (*service.BookingEngine, *MockSnapshotStore) {
	store := NewMockSnapshotStore(nil)
	engine := newEngineWithStore(store)
	return engine, store
}

func newEngineWithStore(store repository.SnapshotStore) *service.BookingEngine {
	logger := discardLogger()
	engine := service.NewBookingEngine(
		service.NewAccountLedger(service.PlainCredentials{}),
		service.NewRideRegistry(),
		store,
		service.NewNotificationService(logger),
		logger,
	)
	engine.Open(context.Background())
	return engine
}

// registerPassenger registers a passenger and tops up balance.
func registerPassenger(engine *service.BookingEngine, username string, balance float64) service.Session {
	ctx := context.Background()
	if _, err := engine.Register(ctx, service.RegisterRequest{
		Username: username,
		Password: "pw-" + username,
		Role:     domain.RolePassenger,
	}); err != nil {
		panic(err)
	}
	sess := service.Session{Username: username, Role: domain.RolePassenger}
	for balance > 0 {
		amount := min(balance, service.MaxTopUp)
		if _, err := engine.TopUp(ctx, sess, amount); err != nil {
			panic(err)
		}
		balance -= amount
	}
	return sess
}

// registerCaptain registers a captain with a default vehicle.
func registerCaptain(engine *service.BookingEngine, username string) service.Session {
	if _, err := engine.Register(context.Background(), service.RegisterRequest{
		Username:     username,
		Password:     "pw-" + username,
		Role:         domain.RoleCaptain,
		VehicleType:  "Sedan",
		VehicleClass: "Economy",
	}); err != nil {
		panic(err)
	}
	return service.Session{Username: username, Role: domain.RoleCaptain}
}

// postRide creates a ride for captain and returns its ID.
func postRide(engine *service.BookingEngine, captain service.Session, seats int, fare float64, departure string) string {
	ride, err := engine.CreateRide(context.Background(), captain, service.CreateRideRequest{
		Route:         "Downtown-Airport",
		DepartureTime: departure,
		ReturnTime:    "",
		Seats:         seats,
		Fare:          fare,
	})
	if err != nil {
		panic(err)
	}
	return ride.ID
}

func balanceOf(engine *service.BookingEngine, username string) float64 {
	b, err := engine.Balance(context.Background(), username)
	if err != nil {
		panic(err)
	}
	return b
}
