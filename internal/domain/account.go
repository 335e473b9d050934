package domain

// Role identifies which account variant a user registered as.
type Role string

const (
	RolePassenger Role = "PASSENGER"
	RoleCaptain   Role = "CAPTAIN"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RolePassenger, RoleCaptain:
		return true
	}
	return false
}

// Vehicle describes the car a captain drives. Only captains carry one.
type Vehicle struct {
	Type  string
	Class string
}

// Account is a registered user. It is either a passenger or a captain;
// Vehicle is set if and only if Role is RoleCaptain.
type Account struct {
	Username    string
	Secret      string // output of the configured credential strategy
	Role        Role
	Balance     float64
	CancelCount int
	RatingSum   int
	RatingCount int
	Vehicle     *Vehicle
}

// NewPassenger creates a passenger account with a zero balance.
func NewPassenger(username, secret string) *Account {
	return &Account{Username: username, Secret: secret, Role: RolePassenger}
}

// NewCaptain creates a captain account with a zero balance.
func NewCaptain(username, secret string, vehicle Vehicle) *Account {
	return &Account{Username: username, Secret: secret, Role: RoleCaptain, Vehicle: &vehicle}
}

// IsCaptain reports whether the account is the captain variant.
func (a *Account) IsCaptain() bool {
	return a.Role == RoleCaptain
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount float64) {
	a.Balance += amount
}

// Debit subtracts amount from the balance. The balance may go negative.
func (a *Account) Debit(amount float64) {
	a.Balance -= amount
}

// AddRating accumulates one rating contribution.
func (a *Account) AddRating(stars int) {
	a.RatingSum += stars
	a.RatingCount++
}

// AverageRating returns RatingSum/RatingCount, or 0 when unrated.
func (a *Account) AverageRating() float64 {
	if a.RatingCount == 0 {
		return 0
	}
	return float64(a.RatingSum) / float64(a.RatingCount)
}

// Clone returns a deep copy safe to hand outside the engine lock.
func (a *Account) Clone() *Account {
	c := *a
	if a.Vehicle != nil {
		v := *a.Vehicle
		c.Vehicle = &v
	}
	return &c
}
