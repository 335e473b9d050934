package service

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRegistry owns every ride, kept in the order rides were posted. It is
// not safe for concurrent use; BookingEngine serialises access to it.
type RideRegistry struct {
	rides []*domain.Ride
	byID  map[string]*domain.Ride
	newID func() string
}

// NewRideRegistry creates an empty registry.
func NewRideRegistry() *RideRegistry {
	return &RideRegistry{
		byID:  make(map[string]*domain.Ride),
		newID: func() string { return uuid.New().String() },
	}
}

// Restore replaces the registry contents with rides loaded from storage.
func (r *RideRegistry) Restore(rides []*domain.Ride) {
	r.rides = r.rides[:0]
	r.byID = make(map[string]*domain.Ride, len(rides))
	for _, ride := range rides {
		if _, ok := r.byID[ride.ID]; ok || ride.ID == "" {
			ride.ID = r.newID()
		}
		r.rides = append(r.rides, ride)
		r.byID[ride.ID] = ride
	}
}

// CreateRideRequest contains the parameters for posting a ride.
type CreateRideRequest struct {
	Route         string
	DepartureTime string
	ReturnTime    string
	Seats         int
	Fare          float64
}

// Create posts a new ride for captain. Route and time strings are stored as given.
func (r *RideRegistry) Create(captain *domain.Account, req CreateRideRequest) (*domain.Ride, error) {
	if req.Route == "" || req.DepartureTime == "" {
		return nil, ErrEmptyField
	}
	if req.Seats <= 0 {
		return nil, ErrInvalidSeats
	}
	if req.Fare < 0 {
		return nil, ErrInvalidFare
	}

	ride := &domain.Ride{
		ID:            r.newID(),
		Captain:       captain.Username,
		Route:         req.Route,
		DepartureTime: req.DepartureTime,
		ReturnTime:    req.ReturnTime,
		TotalSeats:    req.Seats,
		Fare:          req.Fare,
	}
	if captain.Vehicle != nil {
		ride.VehicleType = captain.Vehicle.Type
		ride.VehicleClass = captain.Vehicle.Class
	}

	r.rides = append(r.rides, ride)
	r.byID[ride.ID] = ride
	return ride, nil
}

// Get returns the ride with the given ID.
func (r *RideRegistry) Get(id string) (*domain.Ride, error) {
	ride, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("ride %q: %w", id, repository.ErrNotFound)
	}
	return ride, nil
}

// All yields every ride in posting order.
func (r *RideRegistry) All() iter.Seq[*domain.Ride] {
	return r.filter(func(*domain.Ride) bool { return true })
}

// ListBookable yields rides username could book: not completed, not full
// and not already booked by username.
func (r *RideRegistry) ListBookable(username string) iter.Seq[*domain.Ride] {
	return r.filter(func(ride *domain.Ride) bool {
		return !ride.Completed && !ride.IsFull() && !ride.HasPassenger(username)
	})
}

// ListByCaptain yields the captain's rides, optionally including completed ones.
func (r *RideRegistry) ListByCaptain(captain string, includeCompleted bool) iter.Seq[*domain.Ride] {
	return r.filter(func(ride *domain.Ride) bool {
		return ride.Captain == captain && (includeCompleted || !ride.Completed)
	})
}

// ListActiveByPassenger yields non-completed rides username holds a seat on.
func (r *RideRegistry) ListActiveByPassenger(username string) iter.Seq[*domain.Ride] {
	return r.filter(func(ride *domain.Ride) bool {
		return !ride.Completed && ride.HasPassenger(username)
	})
}

// ListRateableByPassenger yields completed, unrated rides username travelled on.
func (r *RideRegistry) ListRateableByPassenger(username string) iter.Seq[*domain.Ride] {
	return r.filter(func(ride *domain.Ride) bool {
		return ride.Completed && !ride.Rated && ride.HasPassenger(username)
	})
}

// NewestRateable picks the rateable ride with the latest departure time.
// Unparsable departure times count as the oldest; ties keep posting order.
func (r *RideRegistry) NewestRateable(username string) (*domain.Ride, bool) {
	var newest *domain.Ride
	var newestAt time.Time
	for ride := range r.ListRateableByPassenger(username) {
		at, _ := ride.DepartureAt()
		if newest == nil || at.After(newestAt) {
			newest, newestAt = ride, at
		}
	}
	return newest, newest != nil
}

// CountActiveByPassenger returns how many active rides username holds a seat on.
func (r *RideRegistry) CountActiveByPassenger(username string) int {
	n := 0
	for range r.ListActiveByPassenger(username) {
		n++
	}
	return n
}

// Remove deletes a ride outright. Only rides without passengers may be removed.
func (r *RideRegistry) Remove(id string) error {
	ride, err := r.Get(id)
	if err != nil {
		return err
	}
	if len(ride.Passengers) > 0 {
		return ErrNotEmpty
	}
	delete(r.byID, id)
	r.rides = slices.DeleteFunc(r.rides, func(x *domain.Ride) bool { return x.ID == id })
	return nil
}

// MarkCompleted flags the ride as completed. It reports whether the flag changed.
func (r *RideRegistry) MarkCompleted(ride *domain.Ride) bool {
	if ride.Completed {
		return false
	}
	ride.Completed = true
	return true
}

// Rides returns every ride in posting order.
func (r *RideRegistry) Rides() []*domain.Ride {
	return slices.Collect(r.All())
}

func (r *RideRegistry) filter(keep func(*domain.Ride) bool) iter.Seq[*domain.Ride] {
	return func(yield func(*domain.Ride) bool) {
		for _, ride := range r.rides {
			if keep(ride) && !yield(ride) {
				return
			}
		}
	}
}
