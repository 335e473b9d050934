package tests

import (
	"context"
	"errors"
	"testing"

	"carpool/internal/service"
)

func TestRateCaptain_MarksRideRated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	alice := registerPassenger(engine, "alice", 1000)
	rideID := postRide(engine, captain, 1, 100, "2024-05-01 08:00")
	mustBook(engine, alice, rideID)

	if _, err := engine.RateCaptain(ctx, alice, rideID, 4); !errors.Is(err, service.ErrRideNotRateable) {
		t.Errorf("expected ErrRideNotRateable before completion, got %v", err)
	}

	if _, err := engine.CompleteRide(ctx, captain, rideID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	res, err := engine.RateCaptain(ctx, alice, rideID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rated != "bob" || res.AverageRating != 4 || res.RatingCount != 1 {
		t.Errorf("expected bob rated 4 once, got %+v", res)
	}

	ride, _ := engine.GetRide(ctx, rideID)
	if !ride.Rated {
		t.Error("expected ride to be marked rated")
	}

	if _, err := engine.RateCaptain(ctx, alice, rideID, 5); !errors.Is(err, service.ErrRideNotRateable) {
		t.Errorf("expected ErrRideNotRateable on second rating, got %v", err)
	}
	avg, _ := engine.AverageRating(ctx, "bob")
	if avg != 4 {
		t.Errorf("expected average 4 to be unchanged, got %v", avg)
	}
}

func TestRateCaptain_EmptyRideIDPicksLatestDeparture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	alice := registerPassenger(engine, "alice", 1000)

	older := postRide(engine, captain, 1, 10, "2024-05-01 08:00")
	newer := postRide(engine, captain, 1, 10, "2024-06-01 08:00")
	for _, id := range []string{older, newer} {
		mustBook(engine, alice, id)
		if _, err := engine.CompleteRide(ctx, captain, id); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}

	res, err := engine.RateCaptain(ctx, alice, "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RideID != newer {
		t.Errorf("expected newest ride %s to be rated, got %s", newer, res.RideID)
	}

	rateable, _ := engine.ListRateableByPassenger(ctx, alice)
	if len(rateable) != 1 || rateable[0].ID != older {
		t.Errorf("expected only %s left to rate, got %v", older, rideIDs(rateable))
	}
}

func TestRateCaptain_UnparsableDepartureSortsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	alice := registerPassenger(engine, "alice", 1000)

	odd := postRide(engine, captain, 1, 10, "next tuesday")
	dated := postRide(engine, captain, 1, 10, "2020-01-01 00:00")
	for _, id := range []string{odd, dated} {
		mustBook(engine, alice, id)
		if _, err := engine.CompleteRide(ctx, captain, id); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}

	res, err := engine.RateCaptain(ctx, alice, "", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RideID != dated {
		t.Errorf("expected dated ride %s, got %s", dated, res.RideID)
	}
}

func TestRateCaptain_NothingToRate(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	alice := registerPassenger(engine, "alice", 0)

	if _, err := engine.RateCaptain(context.Background(), alice, "", 5); !errors.Is(err, service.ErrRideNotRateable) {
		t.Errorf("expected ErrRideNotRateable, got %v", err)
	}
}

func TestRatePassenger_DefaultsToPrimaryAndAllowsRepeats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	captain := registerCaptain(engine, "bob")
	alice := registerPassenger(engine, "alice", 1000)
	carol := registerPassenger(engine, "carol", 1000)
	rideID := postRide(engine, captain, 2, 100, "2024-05-01 08:00")
	mustBook(engine, alice, rideID)
	mustBook(engine, carol, rideID)

	if _, err := engine.RatePassenger(ctx, captain, rideID, "", 5); err != nil {
		t.Fatalf("first rating failed: %v", err)
	}
	res, err := engine.RatePassenger(ctx, captain, rideID, "", 2)
	if err != nil {
		t.Fatalf("second rating failed: %v", err)
	}
	if res.Rated != "alice" || res.RatingCount != 2 || res.AverageRating != 3.5 {
		t.Errorf("expected alice with 2 ratings averaging 3.5, got %+v", res)
	}

	res, err = engine.RatePassenger(ctx, captain, rideID, "carol", 1)
	if err != nil {
		t.Fatalf("rating carol failed: %v", err)
	}
	if res.Rated != "carol" || res.AverageRating != 1 {
		t.Errorf("expected carol rated 1, got %+v", res)
	}
}

func TestRatePassenger_Rejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	bob := registerCaptain(engine, "bob")
	dan := registerCaptain(engine, "dan")
	alice := registerPassenger(engine, "alice", 1000)
	registerPassenger(engine, "carol", 0)
	empty := postRide(engine, bob, 1, 100, "2024-05-01 08:00")
	booked := postRide(engine, bob, 1, 100, "2024-05-01 08:00")
	mustBook(engine, alice, booked)

	testCases := []struct {
		name      string
		sess      service.Session
		rideID    string
		passenger string
		stars     int
		wantErr   error
	}{
		{"no passenger", bob, empty, "", 4, service.ErrNoPassenger},
		{"not on ride", bob, booked, "carol", 4, service.ErrNotOnRide},
		{"other captain", dan, booked, "", 4, service.ErrNotRideCaptain},
		{"passenger session", alice, booked, "", 4, service.ErrWrongRole},
		{"zero stars", bob, booked, "", 0, service.ErrInvalidRating},
		{"six stars", bob, booked, "", 6, service.ErrInvalidRating},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.RatePassenger(ctx, tc.sess, tc.rideID, tc.passenger, tc.stars)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	avg, _ := engine.AverageRating(ctx, "alice")
	if avg != 0 {
		t.Errorf("expected alice to stay unrated, got %v", avg)
	}
}

func TestRating_InvalidStarsIsValidationError(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	alice := registerPassenger(engine, "alice", 0)

	_, err := engine.RateCaptain(context.Background(), alice, "", 9)
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected a validation error, got %v", err)
	}
}
