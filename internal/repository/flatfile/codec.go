package flatfile

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"carpool/internal/domain"
)

const (
	accountFields = 7
	captainFields = 9
	rideFields    = 13
)

func encodeAccount(a *domain.Account) []string {
	rec := []string{
		roleLabel(a.Role),
		a.Username,
		a.Secret,
		formatFloat(a.Balance),
		strconv.Itoa(a.CancelCount),
		strconv.Itoa(a.RatingSum),
		strconv.Itoa(a.RatingCount),
	}
	if a.IsCaptain() && a.Vehicle != nil {
		rec = append(rec, a.Vehicle.Type, a.Vehicle.Class)
	}
	return rec
}

func decodeAccount(f []string) (*domain.Account, bool) {
	if len(f) < accountFields {
		return nil, false
	}
	role, ok := accountRole(f[0])
	if !ok {
		return nil, false
	}

	var a *domain.Account
	if role == domain.RoleCaptain {
		if len(f) < captainFields {
			return nil, false
		}
		a = domain.NewCaptain(f[1], f[2], domain.Vehicle{Type: f[7], Class: f[8]})
	} else {
		a = domain.NewPassenger(f[1], f[2])
	}

	a.Balance = parseFloat(f[3])
	a.CancelCount = parseInt(f[4])
	a.RatingSum = int(math.Round(parseFloat(f[5])))
	a.RatingCount = parseInt(f[6])
	if a.RatingCount < 0 {
		a.RatingCount = 0
	}
	return a, true
}

func encodeRide(r *domain.Ride) []string {
	return []string{
		r.Captain,
		r.PrimaryPassenger(),
		r.Route,
		r.DepartureTime,
		r.ReturnTime,
		r.VehicleType,
		r.VehicleClass,
		strconv.Itoa(r.TotalSeats),
		strconv.Itoa(r.OccupiedSeats()),
		formatBool(r.Completed),
		formatFloat(r.Fare),
		formatBool(r.Rated),
		strings.Join(r.Passengers, ";"),
		r.ID,
	}
}

func decodeRide(f []string) (*domain.Ride, bool) {
	if len(f) < rideFields {
		return nil, false
	}
	r := &domain.Ride{
		Captain:       f[0],
		Route:         f[2],
		DepartureTime: f[3],
		ReturnTime:    f[4],
		VehicleType:   f[5],
		VehicleClass:  f[6],
		TotalSeats:    parseInt(f[7]),
		Completed:     f[9] == "1",
		Fare:          parseFloat(f[10]),
		Rated:         f[11] == "1",
	}
	if r.TotalSeats <= 0 {
		return nil, false
	}

	// Older files only carry the primary passenger column, sometimes with
	// the whole list joined into it.
	passengers := splitPassengers(f[12])
	if len(passengers) == 0 {
		passengers = splitPassengers(f[1])
	}
	for _, p := range passengers {
		r.AddPassenger(p)
	}

	if len(f) > rideFields && f[rideFields] != "" {
		r.ID = f[rideFields]
	} else {
		r.ID = uuid.New().String()
	}
	return r, true
}

func splitPassengers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseFloat and parseInt read numeric columns leniently: anything that
// does not parse counts as zero.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return int(parseFloat(s))
	}
	return v
}
