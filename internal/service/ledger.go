package service

import (
	"fmt"
	"strings"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// AccountLedger owns every account: balances, cancellation counters and
// rating aggregates. It is not safe for concurrent use; BookingEngine
// serialises access to it.
type AccountLedger struct {
	accounts map[string]*domain.Account
	order    []string
	creds    CredentialStrategy
}

// NewAccountLedger creates an empty ledger that seals passwords with creds.
func NewAccountLedger(creds CredentialStrategy) *AccountLedger {
	if creds == nil {
		creds = PlainCredentials{}
	}
	return &AccountLedger{
		accounts: make(map[string]*domain.Account),
		creds:    creds,
	}
}

// Restore replaces the ledger contents with accounts loaded from storage.
// Later duplicates of a username are dropped.
func (l *AccountLedger) Restore(accounts []*domain.Account) {
	l.accounts = make(map[string]*domain.Account, len(accounts))
	l.order = l.order[:0]
	for _, a := range accounts {
		if _, ok := l.accounts[a.Username]; ok {
			continue
		}
		l.accounts[a.Username] = a
		l.order = append(l.order, a.Username)
	}
}

// RegisterRequest contains the parameters for registering an account.
type RegisterRequest struct {
	Username     string
	Password     string
	Role         domain.Role
	VehicleType  string // captains only
	VehicleClass string // captains only
}

// Register creates an account. Usernames are unique across both roles and
// compared case-sensitively.
func (l *AccountLedger) Register(req RegisterRequest) (*domain.Account, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrEmptyField
	}
	if !validUsername(req.Username) {
		return nil, ErrInvalidUsername
	}
	if !req.Role.IsValid() {
		return nil, ErrInvalidRole
	}
	if req.Role == domain.RoleCaptain && (req.VehicleType == "" || req.VehicleClass == "") {
		return nil, ErrEmptyField
	}
	if _, ok := l.accounts[req.Username]; ok {
		return nil, ErrDuplicateUsername
	}

	secret, err := l.creds.Seal(req.Password)
	if err != nil {
		return nil, err
	}

	var account *domain.Account
	if req.Role == domain.RoleCaptain {
		account = domain.NewCaptain(req.Username, secret, domain.Vehicle{Type: req.VehicleType, Class: req.VehicleClass})
	} else {
		account = domain.NewPassenger(req.Username, secret)
	}

	l.accounts[account.Username] = account
	l.order = append(l.order, account.Username)
	return account, nil
}

// Authenticate returns the account matching username, role and password.
func (l *AccountLedger) Authenticate(username, password string, role domain.Role) (*domain.Account, error) {
	account, ok := l.accounts[username]
	if !ok || account.Role != role || !l.creds.Verify(account.Secret, password) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Get returns the account for username.
func (l *AccountLedger) Get(username string) (*domain.Account, error) {
	account, ok := l.accounts[username]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", username, repository.ErrNotFound)
	}
	return account, nil
}

// Credit adds amount to the account balance.
func (l *AccountLedger) Credit(account *domain.Account, amount float64) {
	account.Credit(amount)
}

// Debit subtracts amount from the account balance without overdraft checks.
func (l *AccountLedger) Debit(account *domain.Account, amount float64) {
	account.Debit(amount)
}

// RecordCancellation bumps the account's cancellation counter.
func (l *AccountLedger) RecordCancellation(account *domain.Account) {
	account.CancelCount++
}

// Rate adds one rating contribution. Callers validate stars.
func (l *AccountLedger) Rate(account *domain.Account, stars int) {
	account.AddRating(stars)
}

// Accounts returns every account in registration order.
func (l *AccountLedger) Accounts() []*domain.Account {
	out := make([]*domain.Account, 0, len(l.order))
	for _, username := range l.order {
		out = append(out, l.accounts[username])
	}
	return out
}

// validUsername rejects names that would not survive the stored passenger
// list, which is joined with ';' inside comma separated records.
func validUsername(username string) bool {
	if strings.TrimSpace(username) != username {
		return false
	}
	return !strings.ContainsAny(username, ";,\r\n")
}
