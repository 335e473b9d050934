package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"carpool/internal/service"
)

// Run with -race.

const concurrentFare = 100.0

func totalBalance(engine *service.BookingEngine) float64 {
	var sum float64
	for _, a := range engine.Snapshot().Accounts {
		sum += a.Balance
	}
	return sum
}

func TestConcurrent_BookingNeverOverfillsRide(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	rideID := postRide(engine, captain, 3, concurrentFare, "2024-05-01 08:00")

	passengers := make([]service.Session, 20)
	for i := range passengers {
		passengers[i] = registerPassenger(engine, fmt.Sprintf("p%02d", i), 1000)
	}
	initial := totalBalance(engine)

	var booked, full atomic.Int32
	var wg sync.WaitGroup
	for _, p := range passengers {
		wg.Add(1)
		go func(sess service.Session) {
			defer wg.Done()
			_, err := engine.BookSeat(ctx, sess, rideID)
			switch {
			case err == nil:
				booked.Add(1)
			case errors.Is(err, service.ErrRideFull):
				full.Add(1)
			default:
				t.Errorf("%s: unexpected error %v", sess.Username, err)
			}
		}(p)
	}
	wg.Wait()

	if booked.Load() != 3 || full.Load() != 17 {
		t.Errorf("expected 3 booked and 17 full, got %d and %d", booked.Load(), full.Load())
	}
	ride, err := engine.GetRide(ctx, rideID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.OccupiedSeats() != 3 {
		t.Errorf("expected 3 occupied seats, got %d", ride.OccupiedSeats())
	}

	fees := float64(booked.Load()) * concurrentFare * service.PlatformFeeRate
	if got := totalBalance(engine); got != initial-fees {
		t.Errorf("expected total balance %v, got %v", initial-fees, got)
	}
}

func TestConcurrent_ActiveRideCapHolds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	alice := registerPassenger(engine, "alice", 1000)

	rideIDs := make([]string, 6)
	for i := range rideIDs {
		rideIDs[i] = postRide(engine, captain, 2, concurrentFare, fmt.Sprintf("2024-05-0%d 08:00", i+1))
	}

	var booked, capped atomic.Int32
	var wg sync.WaitGroup
	for _, id := range rideIDs {
		wg.Add(1)
		go func(rideID string) {
			defer wg.Done()
			_, err := engine.BookSeat(ctx, alice, rideID)
			switch {
			case err == nil:
				booked.Add(1)
			case errors.Is(err, service.ErrTooManyActiveRides):
				capped.Add(1)
			default:
				t.Errorf("ride %s: unexpected error %v", rideID, err)
			}
		}(id)
	}
	wg.Wait()

	if booked.Load() != service.MaxActiveBookings || capped.Load() != int32(len(rideIDs)-service.MaxActiveBookings) {
		t.Errorf("expected %d booked, got %d booked and %d capped", service.MaxActiveBookings, booked.Load(), capped.Load())
	}
	active, err := engine.ListActiveByPassenger(ctx, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != service.MaxActiveBookings {
		t.Errorf("expected %d active rides, got %d", service.MaxActiveBookings, len(active))
	}
	if got := balanceOf(engine, "alice"); got != 1000-float64(service.MaxActiveBookings)*concurrentFare {
		t.Errorf("expected alice charged for %d rides, got balance %v", service.MaxActiveBookings, got)
	}
}

func TestConcurrent_BookAndCancelKeepInvariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")

	rideIDs := make([]string, 3)
	for i := range rideIDs {
		rideIDs[i] = postRide(engine, captain, 4, concurrentFare, fmt.Sprintf("2024-06-0%d 08:00", i+1))
	}
	passengers := make([]service.Session, 10)
	for i := range passengers {
		passengers[i] = registerPassenger(engine, fmt.Sprintf("p%02d", i), 5000)
	}
	initial := totalBalance(engine)

	var bookings atomic.Int32
	var wg sync.WaitGroup
	for i, p := range passengers {
		wg.Add(1)
		go func(i int, sess service.Session) {
			defer wg.Done()
			for round := 0; round < 15; round++ {
				rideID := rideIDs[(i+round)%len(rideIDs)]
				if _, err := engine.BookSeat(ctx, sess, rideID); err == nil {
					bookings.Add(1)
				}
				if round%2 == 1 {
					_, _ = engine.CancelByPassenger(ctx, sess, "")
				}
			}
		}(i, p)
	}
	wg.Wait()

	for _, id := range rideIDs {
		ride, err := engine.GetRide(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ride.OccupiedSeats() > ride.TotalSeats {
			t.Errorf("ride %s overfilled: %d of %d", id, ride.OccupiedSeats(), ride.TotalSeats)
		}
	}
	for _, p := range passengers {
		active, err := engine.ListActiveByPassenger(ctx, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(active) > service.MaxActiveBookings {
			t.Errorf("%s holds %d active rides", p.Username, len(active))
		}
	}

	// Refunds move money between passenger and captain; only the platform
	// fee on each booking leaves the ledger.
	fees := float64(bookings.Load()) * concurrentFare * service.PlatformFeeRate
	if got := totalBalance(engine); got != initial-fees {
		t.Errorf("expected total balance %v, got %v", initial-fees, got)
	}
}
