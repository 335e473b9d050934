package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides, bookings and ratings.
type RideHandler struct {
	engine *service.BookingEngine
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(engine *service.BookingEngine) *RideHandler {
	return &RideHandler{engine: engine}
}

// CreateRideRequest is the HTTP request body for posting a ride.
type CreateRideRequest struct {
	Route         string  `json:"route"`
	DepartureTime string  `json:"departure_time"`
	ReturnTime    string  `json:"return_time,omitempty"`
	Seats         int     `json:"seats"`
	Fare          float64 `json:"fare"`
}

// RideSelectRequest is the HTTP request body for operations whose target
// ride may be left to the server. An empty RideID selects the default ride.
type RideSelectRequest struct {
	RideID string `json:"ride_id,omitempty"`
}

// RateRequest is the HTTP request body for ratings.
type RateRequest struct {
	RideID    string `json:"ride_id,omitempty"`
	Passenger string `json:"passenger,omitempty"`
	Stars     int    `json:"stars"`
}

// BookingResponse is the HTTP response for a booked seat.
type BookingResponse struct {
	Ride             RideResponse `json:"ride"`
	PassengerBalance float64      `json:"passenger_balance"`
	CaptainEarning   float64      `json:"captain_earning"`
	PlatformFee      float64      `json:"platform_fee"`
}

// CancellationResponse is the HTTP response for a cancellation.
type CancellationResponse struct {
	Ride     *RideResponse `json:"ride,omitempty"`
	Deleted  bool          `json:"deleted"`
	Refund   float64       `json:"refund"`
	Penalty  float64       `json:"penalty"`
	Refunded []string      `json:"refunded"`
}

// RatingResponse is the HTTP response for a rating.
type RatingResponse struct {
	RideID        string  `json:"ride_id"`
	Rated         string  `json:"rated"`
	Stars         int     `json:"stars"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

func toCancellationResponse(res *service.CancellationResult) CancellationResponse {
	resp := CancellationResponse{
		Deleted:  res.Deleted,
		Refund:   res.Refund,
		Penalty:  res.Penalty,
		Refunded: res.Refunded,
	}
	if resp.Refunded == nil {
		resp.Refunded = []string{}
	}
	if res.Ride != nil {
		r := toRideResponse(res.Ride)
		resp.Ride = &r
	}
	return resp
}

func toRatingResponse(res *service.RatingResult) RatingResponse {
	return RatingResponse{
		RideID:        res.RideID,
		Rated:         res.Rated,
		Stars:         res.Stars,
		AverageRating: res.AverageRating,
		RatingCount:   res.RatingCount,
	}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.engine.CreateRide(c.Request.Context(), sess, service.CreateRideRequest{
		Route:         req.Route,
		DepartureTime: req.DepartureTime,
		ReturnTime:    req.ReturnTime,
		Seats:         req.Seats,
		Fare:          req.Fare,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// ListBookable handles GET /v1/rides
func (h *RideHandler) ListBookable(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	rides, err := h.engine.ListBookable(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.engine.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// MyRides handles GET /v1/me/rides
// Captains see the rides they posted (?include_completed=true adds finished
// ones); passengers see the active rides they hold a seat on.
func (h *RideHandler) MyRides(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var (
		rides []*domain.Ride
		err   error
	)
	if sess.Role == domain.RoleCaptain {
		includeCompleted, _ := strconv.ParseBool(c.Query("include_completed"))
		rides, err = h.engine.ListByCaptain(c.Request.Context(), sess, includeCompleted)
	} else {
		rides, err = h.engine.ListActiveByPassenger(c.Request.Context(), sess)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// Rateable handles GET /v1/me/rides/rateable
func (h *RideHandler) Rateable(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	rides, err := h.engine.ListRateableByPassenger(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// BookSeat handles POST /v1/rides/:id/book
func (h *RideHandler) BookSeat(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	res, err := h.engine.BookSeat(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BookingResponse{
		Ride:             toRideResponse(res.Ride),
		PassengerBalance: res.PassengerBalance,
		CaptainEarning:   res.CaptainEarning,
		PlatformFee:      res.PlatformFee,
	})
}

// CancelRide handles POST /v1/rides/:id/cancel
// Passengers give up their seat; captains cancel the whole ride.
func (h *RideHandler) CancelRide(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	h.cancel(c, sess, c.Param("id"))
}

// CancelActive handles POST /v1/me/cancel
// Without a ride_id the passenger's first active ride is cancelled.
func (h *RideHandler) CancelActive(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req RideSelectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}
	if req.RideID == "" && sess.Role == domain.RoleCaptain {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ride_id is required"})
		return
	}
	h.cancel(c, sess, req.RideID)
}

func (h *RideHandler) cancel(c *gin.Context, sess service.Session, rideID string) {
	var (
		res *service.CancellationResult
		err error
	)
	if sess.Role == domain.RoleCaptain {
		res, err = h.engine.CancelByCaptain(c.Request.Context(), sess, rideID)
	} else {
		res, err = h.engine.CancelByPassenger(c.Request.Context(), sess, rideID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCancellationResponse(res))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	ride, err := h.engine.CompleteRide(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// RatePassenger handles POST /v1/rides/:id/rate-passenger
func (h *RideHandler) RatePassenger(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.engine.RatePassenger(c.Request.Context(), sess, c.Param("id"), req.Passenger, req.Stars)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRatingResponse(res))
}

// RateCaptain handles POST /v1/rides/:id/rate-captain
func (h *RideHandler) RateCaptain(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	h.rateCaptain(c, sess, c.Param("id"), req.Stars)
}

// RateLatestCaptain handles POST /v1/me/rate-captain
// Without a ride_id the most recently departed rateable ride is used.
func (h *RideHandler) RateLatestCaptain(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	h.rateCaptain(c, sess, req.RideID, req.Stars)
}

func (h *RideHandler) rateCaptain(c *gin.Context, sess service.Session, rideID string, stars int) {
	res, err := h.engine.RateCaptain(c.Request.Context(), sess, rideID, stars)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRatingResponse(res))
}
