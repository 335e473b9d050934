package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mustSession returns the request session. SessionMiddleware guarantees one
// on authenticated routes; a missing session is reported as 401.
func mustSession(c *gin.Context) (service.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		respondError(c, service.ErrInvalidSession)
	}
	return sess, ok
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoActiveRide):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSession):
		return http.StatusUnauthorized

	// Forbidden/ownership errors
	case errors.Is(err, service.ErrWrongRole),
		errors.Is(err, service.ErrNotRideCaptain),
		errors.Is(err, service.ErrNotOnRide):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateUsername),
		errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrTooManyActiveRides),
		errors.Is(err, service.ErrRideFull),
		errors.Is(err, service.ErrNotEmpty),
		errors.Is(err, service.ErrRideCompleted),
		errors.Is(err, service.ErrRideNotRateable),
		errors.Is(err, service.ErrNoPassenger):
		return http.StatusConflict

	// Payment required
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusPaymentRequired

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// RideResponse is the HTTP response for ride data.
type RideResponse struct {
	ID               string   `json:"id"`
	Captain          string   `json:"captain"`
	PrimaryPassenger string   `json:"primary_passenger,omitempty"`
	Passengers       []string `json:"passengers"`
	Route            string   `json:"route"`
	DepartureTime    string   `json:"departure_time"`
	ReturnTime       string   `json:"return_time,omitempty"`
	VehicleType      string   `json:"vehicle_type,omitempty"`
	VehicleClass     string   `json:"vehicle_class,omitempty"`
	TotalSeats       int      `json:"total_seats"`
	OccupiedSeats    int      `json:"occupied_seats"`
	AvailableSeats   int      `json:"available_seats"`
	Fare             float64  `json:"fare"`
	Completed        bool     `json:"completed"`
	Rated            bool     `json:"rated"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	passengers := r.Passengers
	if passengers == nil {
		passengers = []string{}
	}
	return RideResponse{
		ID:               r.ID,
		Captain:          r.Captain,
		PrimaryPassenger: r.PrimaryPassenger(),
		Passengers:       passengers,
		Route:            r.Route,
		DepartureTime:    r.DepartureTime,
		ReturnTime:       r.ReturnTime,
		VehicleType:      r.VehicleType,
		VehicleClass:     r.VehicleClass,
		TotalSeats:       r.TotalSeats,
		OccupiedSeats:    r.OccupiedSeats(),
		AvailableSeats:   r.AvailableSeats(),
		Fare:             r.Fare,
		Completed:        r.Completed,
		Rated:            r.Rated,
	}
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}
