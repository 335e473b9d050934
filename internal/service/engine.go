package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"carpool/internal/domain"
	"carpool/internal/metrics"
	"carpool/internal/repository"
)

// Booking rules.
const (
	// MaxActiveBookings is how many non-completed rides a passenger may hold seats on.
	MaxActiveBookings = 2

	// PlatformFeeRate is the share of each fare kept by the platform on booking.
	PlatformFeeRate = 0.05

	// CancellationPenalty is charged once the canceller already has
	// PenaltyThreshold cancellations on record.
	CancellationPenalty = 50.0
	PenaltyThreshold    = 2

	// MaxTopUp is the largest single balance top-up.
	MaxTopUp = 10000.0

	MinStars = 1
	MaxStars = 5
)

// Session identifies the user an operation runs on behalf of.
type Session struct {
	Username string
	Role     domain.Role
}

// BookingEngine coordinates the ledger and the registry. Every mutating
// operation runs under one exclusive lock, validates everything before
// touching state, then writes a full snapshot to the store. Listings take
// the lock shared and return copies.
type BookingEngine struct {
	mu            sync.RWMutex
	ledger        *AccountLedger
	registry      *RideRegistry
	store         repository.SnapshotStore
	notifications *NotificationService
	logger        *slog.Logger

	degraded     bool
	loadErr      error
	lastFlushErr error
}

// NewBookingEngine creates a new BookingEngine.
func NewBookingEngine(
	ledger *AccountLedger,
	registry *RideRegistry,
	store repository.SnapshotStore,
	notifications *NotificationService,
	logger *slog.Logger,
) *BookingEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = repository.NewMemoryStore()
	}
	return &BookingEngine{
		ledger:        ledger,
		registry:      registry,
		store:         store,
		notifications: notifications,
		logger:        logger,
	}
}

// Open loads the stored state. If the store cannot be read the engine keeps
// running on an in-memory store and reports itself degraded.
func (e *BookingEngine) Open(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.Load(ctx)
	if err != nil {
		e.logger.Warn("store unavailable, running in memory only", "error", err)
		e.store = repository.NewMemoryStore()
		e.degraded = true
		e.loadErr = err
		e.lastFlushErr = err
		return
	}

	e.ledger.Restore(snap.Accounts)
	e.registry.Restore(snap.Rides)
	e.logger.Info("state loaded", "accounts", len(snap.Accounts), "rides", len(snap.Rides))
}

// Degraded reports whether the engine fell back to in-memory storage.
func (e *BookingEngine) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

// LastFlushError returns the error from the most recent snapshot write, or nil.
func (e *BookingEngine) LastFlushError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastFlushErr
}

// PersistenceWarning returns why the latest change may not be durable: the
// last write failed, or the engine is degraded and writes only reach memory.
func (e *BookingEngine) PersistenceWarning() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.lastFlushErr != nil {
		return e.lastFlushErr
	}
	if e.degraded {
		return fmt.Errorf("%w: %v", ErrInMemoryOnly, e.loadErr)
	}
	return nil
}

// Snapshot returns a copy of the full state.
func (e *BookingEngine) Snapshot() *repository.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot(true)
}

// ──────────────────────────────────────────────
// ACCOUNTS
// ──────────────────────────────────────────────

// Register creates a passenger or captain account.
func (e *BookingEngine) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/Register").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	account, err := e.ledger.Register(req)
	if err != nil {
		return nil, e.reject("register", err)
	}

	e.flush(ctx)
	return account.Clone(), nil
}

// Authenticate checks credentials and returns a session for the account.
func (e *BookingEngine) Authenticate(ctx context.Context, username, password string, role domain.Role) (Session, error) {
	if username == "" || password == "" {
		return Session{}, ErrEmptyField
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	account, err := e.ledger.Authenticate(username, password, role)
	if err != nil {
		return Session{}, err
	}
	return Session{Username: account.Username, Role: account.Role}, nil
}

// Account returns a copy of the session user's account.
func (e *BookingEngine) Account(ctx context.Context, sess Session) (*domain.Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	account, err := e.sessionAccount(sess, "")
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// Balance returns the current balance of username.
func (e *BookingEngine) Balance(ctx context.Context, username string) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	account, err := e.ledger.Get(username)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// AverageRating returns the average rating of username, 0 when unrated.
func (e *BookingEngine) AverageRating(ctx context.Context, username string) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	account, err := e.ledger.Get(username)
	if err != nil {
		return 0, err
	}
	return account.AverageRating(), nil
}

// TopUp credits the session user's own balance.
func (e *BookingEngine) TopUp(ctx context.Context, sess Session, amount float64) (*domain.Account, error) {
	if amount <= 0 || amount > MaxTopUp {
		return nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	account, err := e.sessionAccount(sess, "")
	if err != nil {
		return nil, e.reject("top_up", err)
	}

	e.ledger.Credit(account, amount)
	e.flush(ctx)
	return account.Clone(), nil
}

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

// CreateRide posts a ride for the session captain.
func (e *BookingEngine) CreateRide(ctx context.Context, sess Session, req CreateRideRequest) (*domain.Ride, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/CreateRide").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	captain, err := e.sessionAccount(sess, domain.RoleCaptain)
	if err != nil {
		return nil, e.reject("create_ride", err)
	}

	ride, err := e.registry.Create(captain, req)
	if err != nil {
		return nil, e.reject("create_ride", err)
	}

	metrics.RidesCreated.Inc()
	e.flush(ctx)
	return ride.Clone(), nil
}

// GetRide returns a copy of one ride.
func (e *BookingEngine) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ride, err := e.registry.Get(rideID)
	if err != nil {
		return nil, err
	}
	return ride.Clone(), nil
}

// ListBookable returns rides the session user could book.
func (e *BookingEngine) ListBookable(ctx context.Context, sess Session) ([]*domain.Ride, error) {
	if sess.Username == "" {
		return nil, ErrInvalidSession
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneRides(e.registry.ListBookable(sess.Username)), nil
}

// ListByCaptain returns the session captain's rides.
func (e *BookingEngine) ListByCaptain(ctx context.Context, sess Session, includeCompleted bool) ([]*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.sessionAccount(sess, domain.RoleCaptain); err != nil {
		return nil, err
	}
	return cloneRides(e.registry.ListByCaptain(sess.Username, includeCompleted)), nil
}

// ListActiveByPassenger returns the session passenger's active rides.
func (e *BookingEngine) ListActiveByPassenger(ctx context.Context, sess Session) ([]*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.sessionAccount(sess, domain.RolePassenger); err != nil {
		return nil, err
	}
	return cloneRides(e.registry.ListActiveByPassenger(sess.Username)), nil
}

// ListRateableByPassenger returns completed rides the session passenger has not rated yet.
func (e *BookingEngine) ListRateableByPassenger(ctx context.Context, sess Session) ([]*domain.Ride, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.sessionAccount(sess, domain.RolePassenger); err != nil {
		return nil, err
	}
	return cloneRides(e.registry.ListRateableByPassenger(sess.Username)), nil
}

// ──────────────────────────────────────────────
// BOOKING AND CANCELLATION
// ──────────────────────────────────────────────

// BookingResult contains the outcome of a seat booking.
type BookingResult struct {
	Ride             *domain.Ride
	PassengerBalance float64
	CaptainEarning   float64
	PlatformFee      float64
}

// BookSeat books one seat on rideID for the session passenger. The full fare
// is debited from the passenger and the captain is credited the fare minus
// the platform fee.
func (e *BookingEngine) BookSeat(ctx context.Context, sess Session, rideID string) (*BookingResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/BookSeat").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	passenger, err := e.sessionAccount(sess, domain.RolePassenger)
	if err != nil {
		return nil, e.reject("book_seat", err)
	}
	ride, err := e.registry.Get(rideID)
	if err != nil {
		return nil, e.reject("book_seat", err)
	}
	captain, err := e.ledger.Get(ride.Captain)
	if err != nil {
		return nil, e.reject("book_seat", err)
	}

	switch {
	case ride.Completed:
		err = ErrRideCompleted
	case ride.HasPassenger(passenger.Username):
		err = ErrAlreadyBooked
	case e.registry.CountActiveByPassenger(passenger.Username) >= MaxActiveBookings:
		err = ErrTooManyActiveRides
	case ride.IsFull():
		err = ErrRideFull
	case passenger.Balance < ride.Fare:
		err = ErrInsufficientBalance
	}
	if err != nil {
		return nil, e.reject("book_seat", err)
	}

	fee := ride.Fare * PlatformFeeRate
	earning := ride.Fare - fee

	e.ledger.Debit(passenger, ride.Fare)
	e.ledger.Credit(captain, earning)
	ride.AddPassenger(passenger.Username)

	metrics.SeatsBooked.Inc()
	e.flush(ctx)

	if e.notifications != nil {
		e.notifications.NotifySeatBooked(ctx, ride, passenger.Username)
	}

	return &BookingResult{
		Ride:             ride.Clone(),
		PassengerBalance: passenger.Balance,
		CaptainEarning:   earning,
		PlatformFee:      fee,
	}, nil
}

// CancellationResult contains the outcome of a cancellation.
type CancellationResult struct {
	Ride     *domain.Ride // nil when the ride was deleted
	Deleted  bool
	Refund   float64 // per refunded passenger
	Penalty  float64
	Refunded []string
}

// CancelByPassenger gives up the session passenger's seat on rideID. With an
// empty rideID the first active ride of the passenger is cancelled.
//
// The passenger is refunded the fare minus any penalty and the captain is
// debited that same refund, not their post-fee share.
func (e *BookingEngine) CancelByPassenger(ctx context.Context, sess Session, rideID string) (*CancellationResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/CancelByPassenger").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	passenger, err := e.sessionAccount(sess, domain.RolePassenger)
	if err != nil {
		return nil, e.reject("cancel_by_passenger", err)
	}

	ride, err := e.activeRideFor(passenger.Username, rideID)
	if err != nil {
		return nil, e.reject("cancel_by_passenger", err)
	}
	captain, err := e.ledger.Get(ride.Captain)
	if err != nil {
		return nil, e.reject("cancel_by_passenger", err)
	}

	penalty := penaltyFor(passenger)
	refund := ride.Fare - penalty

	e.ledger.Credit(passenger, refund)
	e.ledger.RecordCancellation(passenger)
	e.ledger.Debit(captain, refund)
	ride.RemovePassenger(passenger.Username)

	metrics.Cancellations.WithLabelValues("passenger").Inc()
	if penalty > 0 {
		metrics.PenaltiesCharged.WithLabelValues("passenger").Inc()
	}
	e.flush(ctx)

	if e.notifications != nil {
		e.notifications.NotifyRideCancelled(ctx, ride, passenger.Username, []string{captain.Username})
	}

	return &CancellationResult{
		Ride:     ride.Clone(),
		Refund:   refund,
		Penalty:  penalty,
		Refunded: []string{passenger.Username},
	}, nil
}

// CancelByCaptain cancels the session captain's ride. A ride nobody booked
// is deleted. Otherwise the captain's penalty rule applies, every passenger
// is refunded the full fare and all seats are released.
func (e *BookingEngine) CancelByCaptain(ctx context.Context, sess Session, rideID string) (*CancellationResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/CancelByCaptain").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	captain, ride, err := e.captainRide(sess, rideID)
	if err != nil {
		return nil, e.reject("cancel_by_captain", err)
	}
	if ride.Completed {
		return nil, e.reject("cancel_by_captain", ErrRideCompleted)
	}

	if len(ride.Passengers) == 0 {
		if err := e.registry.Remove(ride.ID); err != nil {
			return nil, e.reject("cancel_by_captain", err)
		}
		e.flush(ctx)
		return &CancellationResult{Deleted: true}, nil
	}

	var refunded []*domain.Account
	for _, username := range ride.Passengers {
		account, err := e.ledger.Get(username)
		if err != nil {
			e.logger.Warn("passenger account missing, seat released without refund",
				"ride_id", ride.ID, "passenger", username)
			continue
		}
		refunded = append(refunded, account)
	}

	penalty := penaltyFor(captain)
	if penalty > 0 {
		e.ledger.Debit(captain, penalty)
	}
	e.ledger.RecordCancellation(captain)

	names := make([]string, 0, len(refunded))
	for _, account := range refunded {
		e.ledger.Credit(account, ride.Fare)
		names = append(names, account.Username)
	}
	recipients := slices.Clone(ride.Passengers)
	ride.Passengers = nil

	metrics.Cancellations.WithLabelValues("captain").Inc()
	if penalty > 0 {
		metrics.PenaltiesCharged.WithLabelValues("captain").Inc()
	}
	e.flush(ctx)

	if e.notifications != nil {
		e.notifications.NotifyRideCancelled(ctx, ride, captain.Username, recipients)
	}

	return &CancellationResult{
		Ride:     ride.Clone(),
		Refund:   ride.Fare,
		Penalty:  penalty,
		Refunded: names,
	}, nil
}

// CompleteRide marks the session captain's ride completed. Completing an
// already completed ride changes nothing.
func (e *BookingEngine) CompleteRide(ctx context.Context, sess Session, rideID string) (*domain.Ride, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/CompleteRide").End()

	e.mu.Lock()
	defer e.mu.Unlock()

	_, ride, err := e.captainRide(sess, rideID)
	if err != nil {
		return nil, e.reject("complete_ride", err)
	}

	if e.registry.MarkCompleted(ride) {
		metrics.RidesCompleted.Inc()
		e.flush(ctx)
		if e.notifications != nil {
			e.notifications.NotifyRideCompleted(ctx, ride)
		}
	}
	return ride.Clone(), nil
}

// ──────────────────────────────────────────────
// RATINGS
// ──────────────────────────────────────────────

// RatingResult contains the rated account after the rating was applied.
type RatingResult struct {
	RideID        string
	Rated         string
	Stars         int
	AverageRating float64
	RatingCount   int
}

// RatePassenger lets the session captain rate a passenger on their ride.
// An empty passenger targets the primary passenger. The same passenger may
// be rated more than once.
func (e *BookingEngine) RatePassenger(ctx context.Context, sess Session, rideID, passenger string, stars int) (*RatingResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/RatePassenger").End()

	if err := validateStars(stars); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	captain, ride, err := e.captainRide(sess, rideID)
	if err != nil {
		return nil, e.reject("rate_passenger", err)
	}

	if passenger == "" {
		passenger = ride.PrimaryPassenger()
	}
	if passenger == "" {
		return nil, e.reject("rate_passenger", ErrNoPassenger)
	}
	if !ride.HasPassenger(passenger) {
		return nil, e.reject("rate_passenger", ErrNotOnRide)
	}
	rated, err := e.ledger.Get(passenger)
	if err != nil {
		return nil, e.reject("rate_passenger", err)
	}

	e.ledger.Rate(rated, stars)

	metrics.Ratings.WithLabelValues("passenger").Inc()
	e.flush(ctx)

	if e.notifications != nil {
		e.notifications.NotifyRated(ctx, rated, captain.Username, stars)
	}
	return ratingResult(ride, rated, stars), nil
}

// RateCaptain lets the session passenger rate the captain of a completed,
// unrated ride. An empty rideID picks the rateable ride with the latest
// departure time. A ride can be rated once.
func (e *BookingEngine) RateCaptain(ctx context.Context, sess Session, rideID string, stars int) (*RatingResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("engine/RateCaptain").End()

	if err := validateStars(stars); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	passenger, err := e.sessionAccount(sess, domain.RolePassenger)
	if err != nil {
		return nil, e.reject("rate_captain", err)
	}

	var ride *domain.Ride
	if rideID == "" {
		var ok bool
		if ride, ok = e.registry.NewestRateable(passenger.Username); !ok {
			return nil, e.reject("rate_captain", ErrRideNotRateable)
		}
	} else {
		if ride, err = e.registry.Get(rideID); err != nil {
			return nil, e.reject("rate_captain", err)
		}
		if !ride.HasPassenger(passenger.Username) {
			return nil, e.reject("rate_captain", ErrNotOnRide)
		}
		if !ride.Completed || ride.Rated {
			return nil, e.reject("rate_captain", ErrRideNotRateable)
		}
	}

	captain, err := e.ledger.Get(ride.Captain)
	if err != nil {
		return nil, e.reject("rate_captain", err)
	}

	e.ledger.Rate(captain, stars)
	ride.Rated = true

	metrics.Ratings.WithLabelValues("captain").Inc()
	e.flush(ctx)

	if e.notifications != nil {
		e.notifications.NotifyRated(ctx, captain, passenger.Username, stars)
	}
	return ratingResult(ride, captain, stars), nil
}

// ──────────────────────────────────────────────
// HELPERS (callers hold e.mu)
// ──────────────────────────────────────────────

// sessionAccount resolves the session user and checks its role when role is set.
func (e *BookingEngine) sessionAccount(sess Session, role domain.Role) (*domain.Account, error) {
	if sess.Username == "" {
		return nil, ErrInvalidSession
	}
	account, err := e.ledger.Get(sess.Username)
	if err != nil {
		return nil, err
	}
	if role != "" && account.Role != role {
		return nil, ErrWrongRole
	}
	return account, nil
}

// captainRide resolves the session captain and one of their rides.
func (e *BookingEngine) captainRide(sess Session, rideID string) (*domain.Account, *domain.Ride, error) {
	captain, err := e.sessionAccount(sess, domain.RoleCaptain)
	if err != nil {
		return nil, nil, err
	}
	ride, err := e.registry.Get(rideID)
	if err != nil {
		return nil, nil, err
	}
	if ride.Captain != captain.Username {
		return nil, nil, ErrNotRideCaptain
	}
	return captain, ride, nil
}

// activeRideFor returns rideID if username holds a seat on it and it is
// still active, or the first active ride of username when rideID is empty.
func (e *BookingEngine) activeRideFor(username, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		for ride := range e.registry.ListActiveByPassenger(username) {
			return ride, nil
		}
		return nil, ErrNoActiveRide
	}

	ride, err := e.registry.Get(rideID)
	if err != nil {
		return nil, err
	}
	if !ride.HasPassenger(username) {
		return nil, ErrNotOnRide
	}
	if ride.Completed {
		return nil, ErrRideCompleted
	}
	return ride, nil
}

// flush writes the full state. A failed write is logged and remembered but
// never undoes the in-memory change.
func (e *BookingEngine) flush(ctx context.Context) {
	start := time.Now()
	err := e.store.Save(context.WithoutCancel(ctx), e.snapshot(false))
	metrics.PersistDuration.Observe(time.Since(start).Seconds())

	e.lastFlushErr = err
	if err != nil {
		metrics.PersistFailures.Inc()
		e.logger.WarnContext(ctx, "snapshot write failed, keeping in-memory state", "error", err)
	}
}

func (e *BookingEngine) snapshot(clone bool) *repository.Snapshot {
	snap := &repository.Snapshot{
		Accounts: e.ledger.Accounts(),
		Rides:    e.registry.Rides(),
	}
	if !clone {
		return snap
	}
	for i, a := range snap.Accounts {
		snap.Accounts[i] = a.Clone()
	}
	for i, r := range snap.Rides {
		snap.Rides[i] = r.Clone()
	}
	return snap
}

func (e *BookingEngine) reject(operation string, err error) error {
	metrics.Rejections.WithLabelValues(operation).Inc()
	if !errors.Is(err, ErrValidation) {
		e.logger.Debug("operation rejected", "operation", operation, "error", err)
	}
	return err
}

func penaltyFor(account *domain.Account) float64 {
	if account.CancelCount >= PenaltyThreshold {
		return CancellationPenalty
	}
	return 0
}

func validateStars(stars int) error {
	if stars < MinStars || stars > MaxStars {
		return ErrInvalidRating
	}
	return nil
}

func ratingResult(ride *domain.Ride, rated *domain.Account, stars int) *RatingResult {
	return &RatingResult{
		RideID:        ride.ID,
		Rated:         rated.Username,
		Stars:         stars,
		AverageRating: rated.AverageRating(),
		RatingCount:   rated.RatingCount,
	}
}

func cloneRides(seq iter.Seq[*domain.Ride]) []*domain.Ride {
	out := []*domain.Ride{}
	for ride := range seq {
		out = append(out, ride.Clone())
	}
	return out
}
