package postgres

import (
	"context"

	"carpool/internal/domain"
)

// rideTable reads and writes the rides and ride_passengers tables.
type rideTable struct {
	q Querier
}

func (t rideTable) deleteAll(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM ride_passengers`); err != nil {
		return err
	}
	_, err := t.q.ExecContext(ctx, `DELETE FROM rides`)
	return err
}

func (t rideTable) insert(ctx context.Context, position int, r *domain.Ride) error {
	query := `
		INSERT INTO rides (id, captain, route, departure_time, return_time, vehicle_type, vehicle_class, total_seats, fare, completed, rated, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := t.q.ExecContext(ctx, query,
		r.ID,
		r.Captain,
		r.Route,
		r.DepartureTime,
		r.ReturnTime,
		r.VehicleType,
		r.VehicleClass,
		r.TotalSeats,
		r.Fare,
		r.Completed,
		r.Rated,
		position,
	)
	if err != nil {
		return err
	}

	for seat, username := range r.Passengers {
		_, err := t.q.ExecContext(ctx,
			`INSERT INTO ride_passengers (ride_id, username, seat) VALUES ($1, $2, $3)`,
			r.ID, username, seat,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t rideTable) all(ctx context.Context) ([]*domain.Ride, error) {
	query := `
		SELECT id, captain, route, departure_time, return_time, vehicle_type, vehicle_class, total_seats, fare, completed, rated
		FROM rides ORDER BY position
	`

	rows, err := t.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	byID := make(map[string]*domain.Ride)
	for rows.Next() {
		var r domain.Ride
		if err := rows.Scan(
			&r.ID,
			&r.Captain,
			&r.Route,
			&r.DepartureTime,
			&r.ReturnTime,
			&r.VehicleType,
			&r.VehicleClass,
			&r.TotalSeats,
			&r.Fare,
			&r.Completed,
			&r.Rated,
		); err != nil {
			return nil, err
		}
		rides = append(rides, &r)
		byID[r.ID] = &r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := t.q.QueryContext(ctx, `SELECT ride_id, username FROM ride_passengers ORDER BY ride_id, seat`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	for prows.Next() {
		var rideID, username string
		if err := prows.Scan(&rideID, &username); err != nil {
			return nil, err
		}
		if r, ok := byID[rideID]; ok {
			r.Passengers = append(r.Passengers, username)
		}
	}
	return rides, prows.Err()
}
