package domain

import (
	"slices"
	"time"
)

// DepartureLayout is the format departure times are parsed with for ordering.
// Times that do not match it are still accepted and stored verbatim.
const DepartureLayout = "2006-01-02 15:04"

// Ride is one trip offered by a captain.
//
// Passengers is the single source of truth for seat occupancy: the number
// of occupied seats is its length and the primary passenger is its first
// element.
type Ride struct {
	ID            string
	Captain       string
	Passengers    []string
	Route         string
	DepartureTime string
	ReturnTime    string
	VehicleType   string
	VehicleClass  string
	TotalSeats    int
	Fare          float64
	Completed     bool
	Rated         bool
}

// PrimaryPassenger returns the first passenger who booked, or "".
func (r *Ride) PrimaryPassenger() string {
	if len(r.Passengers) == 0 {
		return ""
	}
	return r.Passengers[0]
}

// OccupiedSeats returns the number of booked seats.
func (r *Ride) OccupiedSeats() int {
	return len(r.Passengers)
}

// AvailableSeats returns the number of seats left.
func (r *Ride) AvailableSeats() int {
	return r.TotalSeats - len(r.Passengers)
}

// IsFull reports whether every seat is taken.
func (r *Ride) IsFull() bool {
	return len(r.Passengers) >= r.TotalSeats
}

// HasPassenger reports whether username holds a seat on the ride.
func (r *Ride) HasPassenger(username string) bool {
	return slices.Contains(r.Passengers, username)
}

// IsActive reports whether the ride has not been completed yet.
func (r *Ride) IsActive() bool {
	return !r.Completed
}

// AddPassenger appends username if there is room and it is not already on board.
func (r *Ride) AddPassenger(username string) bool {
	if r.IsFull() || r.HasPassenger(username) {
		return false
	}
	r.Passengers = append(r.Passengers, username)
	return true
}

// RemovePassenger drops username from the ride, preserving the order of the rest.
func (r *Ride) RemovePassenger(username string) bool {
	i := slices.Index(r.Passengers, username)
	if i < 0 {
		return false
	}
	r.Passengers = slices.Delete(r.Passengers, i, i+1)
	return true
}

// DepartureAt parses DepartureTime with DepartureLayout.
func (r *Ride) DepartureAt() (time.Time, bool) {
	t, err := time.Parse(DepartureLayout, r.DepartureTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy safe to hand outside the engine lock.
func (r *Ride) Clone() *Ride {
	c := *r
	c.Passengers = slices.Clone(r.Passengers)
	return &c
}
