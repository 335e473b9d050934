package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	internalRedis "carpool/internal/redis"
	"carpool/internal/service"
)

// AccountHandler handles HTTP requests for accounts and login sessions.
type AccountHandler struct {
	engine   *service.BookingEngine
	sessions internalRedis.SessionStoreInterface
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(engine *service.BookingEngine, sessions internalRedis.SessionStoreInterface) *AccountHandler {
	return &AccountHandler{
		engine:   engine,
		sessions: sessions,
	}
}

// RegisterRequest is the HTTP request body for account registration.
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	VehicleType  string `json:"vehicle_type,omitempty"`
	VehicleClass string `json:"vehicle_class,omitempty"`
}

// LoginRequest is the HTTP request body for opening a session.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResponse is the HTTP response for a new session.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TopUpRequest is the HTTP request body for adding funds.
type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

// AccountResponse is the HTTP response for the caller's own account.
type AccountResponse struct {
	Username      string  `json:"username"`
	Role          string  `json:"role"`
	Balance       float64 `json:"balance"`
	CancelCount   int     `json:"cancel_count"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
	VehicleType   string  `json:"vehicle_type,omitempty"`
	VehicleClass  string  `json:"vehicle_class,omitempty"`
}

// ProfileResponse is the public view of an account.
type ProfileResponse struct {
	Username      string  `json:"username"`
	AverageRating float64 `json:"average_rating"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		Username:      a.Username,
		Role:          string(a.Role),
		Balance:       a.Balance,
		CancelCount:   a.CancelCount,
		AverageRating: a.AverageRating(),
		RatingCount:   a.RatingCount,
	}
	if a.Vehicle != nil {
		resp.VehicleType = a.Vehicle.Type
		resp.VehicleClass = a.Vehicle.Class
	}
	return resp
}

// Register handles POST /v1/accounts/register
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.engine.Register(c.Request.Context(), service.RegisterRequest{
		Username:     req.Username,
		Password:     req.Password,
		Role:         domain.Role(req.Role),
		VehicleType:  req.VehicleType,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toAccountResponse(account))
}

// Profile handles GET /v1/accounts/:username
func (h *AccountHandler) Profile(c *gin.Context) {
	username := c.Param("username")
	avg, err := h.engine.AverageRating(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, ProfileResponse{Username: username, AverageRating: avg})
}

// Login handles POST /v1/sessions
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.engine.Authenticate(ctx, req.Username, req.Password, domain.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.sessions.Create(ctx, internalRedis.StoredSession{
		Username: sess.Username,
		Role:     string(sess.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, LoginResponse{
		Token:    token,
		Username: sess.Username,
		Role:     string(sess.Role),
	})
}

// Logout handles DELETE /v1/sessions
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /v1/me
func (h *AccountHandler) Me(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	account, err := h.engine.Account(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toAccountResponse(account))
}

// TopUp handles POST /v1/me/topup
func (h *AccountHandler) TopUp(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.engine.TopUp(c.Request.Context(), sess, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toAccountResponse(account))
}
