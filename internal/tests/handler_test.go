package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/app"
	"carpool/internal/handler"
	"carpool/internal/middleware"
	internalRedis "carpool/internal/redis"
	"carpool/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) (*apiClient, *service.BookingEngine, *MockSnapshotStore) {
	t.Helper()
	engine, store := newTestEngine()
	router := app.NewRouter(app.RouterDeps{
		Engine:       engine,
		SessionStore: internalRedis.NewMemorySessionStore(time.Hour),
	})
	return &apiClient{t: t, router: router}, engine, store
}

func (c *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *apiClient) register(body handler.RegisterRequest) {
	c.t.Helper()
	if w := c.do(http.MethodPost, "/v1/accounts/register", "", body); w.Code != http.StatusCreated {
		c.t.Fatalf("register %s: expected 201, got %d: %s", body.Username, w.Code, w.Body.String())
	}
}

func (c *apiClient) login(username, password, role string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/v1/sessions", "", handler.LoginRequest{Username: username, Password: password, Role: role})
	if w.Code != http.StatusCreated {
		c.t.Fatalf("login %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	var resp handler.LoginResponse
	decode(c.t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestAPI_BookingFlow(t *testing.T) {
	t.Parallel()

	api, _, _ := newAPI(t)
	api.register(handler.RegisterRequest{Username: "bob", Password: "pw", Role: "CAPTAIN", VehicleType: "Sedan", VehicleClass: "Economy"})
	api.register(handler.RegisterRequest{Username: "alice", Password: "pw", Role: "PASSENGER"})

	bob := api.login("bob", "pw", "CAPTAIN")
	alice := api.login("alice", "pw", "PASSENGER")

	if w := api.do(http.MethodPost, "/v1/me/topup", alice, handler.TopUpRequest{Amount: 1000}); w.Code != http.StatusOK {
		t.Fatalf("topup: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := api.do(http.MethodPost, "/v1/rides", bob, handler.CreateRideRequest{
		Route: "A-B", DepartureTime: "2024-05-01 08:00", Seats: 2, Fare: 200,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create ride: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var ride handler.RideResponse
	decode(t, w, &ride)

	w = api.do(http.MethodGet, "/v1/rides", alice, nil)
	var bookable []handler.RideResponse
	decode(t, w, &bookable)
	if len(bookable) != 1 || bookable[0].ID != ride.ID {
		t.Fatalf("expected ride %s to be bookable, got %+v", ride.ID, bookable)
	}

	w = api.do(http.MethodPost, "/v1/rides/"+ride.ID+"/book", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("book: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var booking handler.BookingResponse
	decode(t, w, &booking)
	if booking.PassengerBalance != 800 || booking.CaptainEarning != 190 {
		t.Errorf("expected 800/190, got %+v", booking)
	}
	if w.Header().Get(middleware.PersistenceWarningHeader) != "" {
		t.Errorf("expected no persistence warning, got %q", w.Header().Get(middleware.PersistenceWarningHeader))
	}

	w = api.do(http.MethodPost, "/v1/rides/"+ride.ID+"/book", alice, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("double booking: expected 409, got %d", w.Code)
	}

	if w = api.do(http.MethodPost, "/v1/rides/"+ride.ID+"/complete", bob, nil); w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = api.do(http.MethodPost, "/v1/me/rate-captain", alice, handler.RateRequest{Stars: 5})
	if w.Code != http.StatusOK {
		t.Fatalf("rate captain: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rating handler.RatingResponse
	decode(t, w, &rating)
	if rating.Rated != "bob" || rating.AverageRating != 5 {
		t.Errorf("expected bob rated 5, got %+v", rating)
	}

	w = api.do(http.MethodGet, "/v1/accounts/bob", "", nil)
	var profile handler.ProfileResponse
	decode(t, w, &profile)
	if profile.AverageRating != 5 {
		t.Errorf("expected public average 5, got %v", profile.AverageRating)
	}
}

func TestAPI_ErrorStatusCodes(t *testing.T) {
	t.Parallel()

	api, _, _ := newAPI(t)
	api.register(handler.RegisterRequest{Username: "bob", Password: "pw", Role: "CAPTAIN", VehicleType: "Sedan", VehicleClass: "Economy"})
	api.register(handler.RegisterRequest{Username: "alice", Password: "pw", Role: "PASSENGER"})
	bob := api.login("bob", "pw", "CAPTAIN")
	alice := api.login("alice", "pw", "PASSENGER")

	w := api.do(http.MethodPost, "/v1/rides", bob, handler.CreateRideRequest{Route: "A-B", DepartureTime: "2024-05-01 08:00", Seats: 1, Fare: 50})
	var ride handler.RideResponse
	decode(t, w, &ride)

	testCases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"duplicate username", http.MethodPost, "/v1/accounts/register", "", handler.RegisterRequest{Username: "alice", Password: "x", Role: "PASSENGER"}, http.StatusConflict},
		{"empty register fields", http.MethodPost, "/v1/accounts/register", "", handler.RegisterRequest{Role: "PASSENGER"}, http.StatusBadRequest},
		{"bad login", http.MethodPost, "/v1/sessions", "", handler.LoginRequest{Username: "alice", Password: "nope", Role: "PASSENGER"}, http.StatusUnauthorized},
		{"no token", http.MethodGet, "/v1/me", "", nil, http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/v1/me", "not-a-token", nil, http.StatusUnauthorized},
		{"insufficient balance", http.MethodPost, "/v1/rides/" + ride.ID + "/book", alice, nil, http.StatusPaymentRequired},
		{"captain cannot book", http.MethodPost, "/v1/rides/" + ride.ID + "/book", bob, nil, http.StatusForbidden},
		{"unknown ride", http.MethodGet, "/v1/rides/missing", alice, nil, http.StatusNotFound},
		{"no active ride", http.MethodPost, "/v1/me/cancel", alice, nil, http.StatusNotFound},
		{"bad stars", http.MethodPost, "/v1/rides/" + ride.ID + "/rate-passenger", bob, handler.RateRequest{Stars: 9}, http.StatusBadRequest},
		{"topup out of range", http.MethodPost, "/v1/me/topup", alice, handler.TopUpRequest{Amount: 20000}, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := api.do(tc.method, tc.path, tc.token, tc.body)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPI_CancellationByRole(t *testing.T) {
	t.Parallel()

	api, engine, _ := newAPI(t)
	api.register(handler.RegisterRequest{Username: "bob", Password: "pw", Role: "CAPTAIN", VehicleType: "Sedan", VehicleClass: "Economy"})
	api.register(handler.RegisterRequest{Username: "alice", Password: "pw", Role: "PASSENGER"})
	bob := api.login("bob", "pw", "CAPTAIN")
	alice := api.login("alice", "pw", "PASSENGER")
	api.do(http.MethodPost, "/v1/me/topup", alice, handler.TopUpRequest{Amount: 500})

	w := api.do(http.MethodPost, "/v1/rides", bob, handler.CreateRideRequest{Route: "A-B", DepartureTime: "2024-05-01 08:00", Seats: 2, Fare: 100})
	var ride handler.RideResponse
	decode(t, w, &ride)
	api.do(http.MethodPost, "/v1/rides/"+ride.ID+"/book", alice, nil)

	w = api.do(http.MethodPost, "/v1/me/cancel", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("passenger cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var cancelled handler.CancellationResponse
	decode(t, w, &cancelled)
	if cancelled.Refund != 100 || cancelled.Deleted {
		t.Errorf("expected refund 100 without delete, got %+v", cancelled)
	}

	w = api.do(http.MethodPost, "/v1/rides/"+ride.ID+"/cancel", bob, nil)
	decode(t, w, &cancelled)
	if !cancelled.Deleted {
		t.Errorf("expected empty ride to be deleted, got %+v", cancelled)
	}
	if _, err := engine.GetRide(t.Context(), ride.ID); err == nil {
		t.Error("expected ride to be gone")
	}
}

func TestAPI_PersistenceWarningHeader(t *testing.T) {
	t.Parallel()

	api, _, store := newAPI(t)
	store.SaveError = errors.New("read-only file system")

	w := api.do(http.MethodPost, "/v1/accounts/register", "", handler.RegisterRequest{Username: "alice", Password: "pw", Role: "PASSENGER"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected registration to succeed, got %d", w.Code)
	}
	if w.Header().Get(middleware.PersistenceWarningHeader) == "" {
		t.Error("expected persistence warning header")
	}

	w = api.do(http.MethodGet, "/health", "", nil)
	var health handler.HealthResponse
	decode(t, w, &health)
	if health.Status != "degraded" || health.PersistenceError == "" {
		t.Errorf("expected degraded health, got %+v", health)
	}
}

func TestAPI_DegradedEngineWarnsOnEveryResponse(t *testing.T) {
	t.Parallel()

	store := NewMockSnapshotStore(nil)
	store.LoadError = errors.New("connection refused")
	engine := newEngineWithStore(store)
	router := app.NewRouter(app.RouterDeps{
		Engine:       engine,
		SessionStore: internalRedis.NewMemorySessionStore(time.Hour),
	})
	api := &apiClient{t: t, router: router}

	for _, name := range []string{"alice", "carol"} {
		w := api.do(http.MethodPost, "/v1/accounts/register", "", handler.RegisterRequest{Username: name, Password: "pw", Role: "PASSENGER"})
		if w.Code != http.StatusCreated {
			t.Fatalf("register %s: expected 201, got %d", name, w.Code)
		}
		if w.Header().Get(middleware.PersistenceWarningHeader) == "" {
			t.Errorf("register %s: expected persistence warning header", name)
		}
	}

	w := api.do(http.MethodGet, "/health", "", nil)
	var health handler.HealthResponse
	decode(t, w, &health)
	if health.Status != "degraded" || !health.InMemoryOnly || health.PersistenceError == "" {
		t.Errorf("expected degraded in-memory health, got %+v", health)
	}
}

func TestAPI_Logout(t *testing.T) {
	t.Parallel()

	api, _, _ := newAPI(t)
	api.register(handler.RegisterRequest{Username: "alice", Password: "pw", Role: "PASSENGER"})
	token := api.login("alice", "pw", "PASSENGER")

	if w := api.do(http.MethodGet, "/v1/me", token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := api.do(http.MethodDelete, "/v1/sessions", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}
	if w := api.do(http.MethodGet, "/v1/me", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
}
