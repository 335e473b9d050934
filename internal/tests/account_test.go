package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"carpool/internal/domain"
	"carpool/internal/service"
)

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	registerPassenger(engine, "taken", 0)

	testCases := []struct {
		name    string
		req     service.RegisterRequest
		wantErr error
	}{
		{"empty username", service.RegisterRequest{Password: "x", Role: domain.RolePassenger}, service.ErrEmptyField},
		{"empty password", service.RegisterRequest{Username: "u", Role: domain.RolePassenger}, service.ErrEmptyField},
		{"unknown role", service.RegisterRequest{Username: "u", Password: "x", Role: "DRIVER"}, service.ErrInvalidRole},
		{"captain without vehicle", service.RegisterRequest{Username: "u", Password: "x", Role: domain.RoleCaptain}, service.ErrEmptyField},
		{"duplicate across roles", service.RegisterRequest{Username: "taken", Password: "x", Role: domain.RoleCaptain, VehicleType: "Van", VehicleClass: "XL"}, service.ErrDuplicateUsername},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Register(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegister_UsernamesAreCaseSensitive(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()
	registerPassenger(engine, "alice", 0)

	if _, err := engine.Register(context.Background(), service.RegisterRequest{
		Username: "Alice", Password: "pw", Role: domain.RolePassenger,
	}); err != nil {
		t.Errorf("expected Alice to be distinct from alice, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	registerPassenger(engine, "alice", 0)

	sess, err := engine.Authenticate(ctx, "alice", "pw-alice", domain.RolePassenger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Username != "alice" || sess.Role != domain.RolePassenger {
		t.Errorf("expected alice passenger session, got %+v", sess)
	}

	testCases := []struct {
		name     string
		username string
		password string
		role     domain.Role
	}{
		{"wrong password", "alice", "nope", domain.RolePassenger},
		{"wrong role", "alice", "pw-alice", domain.RoleCaptain},
		{"unknown user", "zed", "pw-zed", domain.RolePassenger},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Authenticate(ctx, tc.username, tc.password, tc.role); !errors.Is(err, service.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestTopUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine()
	alice := registerPassenger(engine, "alice", 0)

	account, err := engine.TopUp(ctx, alice, 250.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Balance != 250.5 {
		t.Errorf("expected balance 250.5, got %v", account.Balance)
	}

	for _, amount := range []float64{0, -5, service.MaxTopUp + 1} {
		if _, err := engine.TopUp(ctx, alice, amount); !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount for %v, got %v", amount, err)
		}
	}
	if got := balanceOf(engine, "alice"); got != 250.5 {
		t.Errorf("expected balance to stay 250.5, got %v", got)
	}
}

func TestOperations_RequireSession(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine()

	if _, err := engine.BookSeat(context.Background(), service.Session{}, "any"); !errors.Is(err, service.ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := engine.ListBookable(context.Background(), service.Session{}); !errors.Is(err, service.ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession, got %v", err)
	}
}

func TestBcryptCredentials(t *testing.T) {
	t.Parallel()

	creds, err := service.NewCredentialStrategy("bcrypt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger := service.NewAccountLedger(creds)
	account, err := ledger.Register(service.RegisterRequest{
		Username: "alice", Password: "s3cret", Role: domain.RolePassenger,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Secret == "s3cret" || !strings.HasPrefix(account.Secret, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", account.Secret)
	}
	if _, err := ledger.Authenticate("alice", "s3cret", domain.RolePassenger); err != nil {
		t.Errorf("expected hashed password to verify, got %v", err)
	}
	if _, err := ledger.Authenticate("alice", "wrong", domain.RolePassenger); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	// Accounts loaded from older plain-text files still log in.
	ledger.Restore([]*domain.Account{domain.NewPassenger("legacy", "plain")})
	if _, err := ledger.Authenticate("legacy", "plain", domain.RolePassenger); err != nil {
		t.Errorf("expected plain secret to verify under bcrypt strategy, got %v", err)
	}
}

func TestNewCredentialStrategy_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := service.NewCredentialStrategy("rot13"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}
