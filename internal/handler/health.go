package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/service"
)

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	InMemoryOnly     bool   `json:"in_memory_only"`
	PersistenceError string `json:"persistence_error,omitempty"`
}

// HealthHandler reports whether state is being saved.
type HealthHandler struct {
	engine *service.BookingEngine
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(engine *service.BookingEngine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// Health handles GET /health
// Always 200; Status is "degraded" while changes are not being saved.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", InMemoryOnly: h.engine.Degraded()}
	if err := h.engine.PersistenceWarning(); err != nil {
		resp.Status = "degraded"
		resp.PersistenceError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
