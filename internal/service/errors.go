package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every input validation error. It is
	// returned before any state changes.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyField is returned when a required field is empty.
	ErrEmptyField = fmt.Errorf("%w: required field is empty", ErrValidation)

	// ErrInvalidUsername is returned when a username has surrounding
	// whitespace or contains a list separator or line break.
	ErrInvalidUsername = fmt.Errorf("%w: username may not contain ';', ',', line breaks or surrounding spaces", ErrValidation)

	// ErrInvalidRole is returned when the role is neither passenger nor captain.
	ErrInvalidRole = fmt.Errorf("%w: invalid role", ErrValidation)

	// ErrInvalidSeats is returned when a ride is offered with no seats.
	ErrInvalidSeats = fmt.Errorf("%w: seats must be greater than zero", ErrValidation)

	// ErrInvalidFare is returned when a ride is offered with a negative fare.
	ErrInvalidFare = fmt.Errorf("%w: fare must not be negative", ErrValidation)

	// ErrInvalidRating is returned when stars are outside 1..5.
	ErrInvalidRating = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)

	// ErrInvalidAmount is returned when a top-up amount is out of range.
	ErrInvalidAmount = fmt.Errorf("%w: amount out of range", ErrValidation)

	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials is returned when username, role or password do not match.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidSession is returned when an operation is called without a session user.
	ErrInvalidSession = errors.New("no user in session")

	// ErrWrongRole is returned when the session user has the wrong role for the operation.
	ErrWrongRole = errors.New("operation not allowed for this role")

	// ErrAlreadyBooked is returned when the passenger already holds a seat on the ride.
	ErrAlreadyBooked = errors.New("ride already booked by this passenger")

	// ErrTooManyActiveRides is returned when the passenger already has the maximum active bookings.
	ErrTooManyActiveRides = errors.New("too many active rides")

	// ErrRideFull is returned when no seats are left.
	ErrRideFull = errors.New("no seats available on this ride")

	// ErrInsufficientBalance is returned when the passenger cannot pay the fare.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoActiveRide is returned when the passenger has no active ride to cancel.
	ErrNoActiveRide = errors.New("no active ride")

	// ErrNotEmpty is returned when deleting a ride that still has passengers.
	ErrNotEmpty = errors.New("ride has passengers")

	// ErrRideCompleted is returned when booking or cancelling a completed ride.
	ErrRideCompleted = errors.New("ride already completed")

	// ErrRideNotRateable is returned when a ride is not completed or already rated.
	ErrRideNotRateable = errors.New("ride cannot be rated")

	// ErrNotRideCaptain is returned when a captain acts on another captain's ride.
	ErrNotRideCaptain = errors.New("ride belongs to another captain")

	// ErrNotOnRide is returned when the passenger holds no seat on the ride.
	ErrNotOnRide = errors.New("passenger not on this ride")

	// ErrInMemoryOnly is reported while the store could not be loaded and
	// changes are kept in process memory only.
	ErrInMemoryOnly = errors.New("running in memory only")

	// ErrNoPassenger is returned when rating a ride that has no passenger.
	ErrNoPassenger = errors.New("no passenger to rate for this ride")
)
