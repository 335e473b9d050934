package postgres

import (
	"context"
	"database/sql"

	"carpool/internal/domain"
)

// accountTable reads and writes the accounts table.
type accountTable struct {
	q Querier
}

func (t accountTable) deleteAll(ctx context.Context) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM accounts`)
	return err
}

func (t accountTable) insert(ctx context.Context, position int, a *domain.Account) error {
	query := `
		INSERT INTO accounts (username, secret, role, balance, cancel_count, rating_sum, rating_count, vehicle_type, vehicle_class, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var vehicleType, vehicleClass sql.NullString
	if a.Vehicle != nil {
		vehicleType = sql.NullString{String: a.Vehicle.Type, Valid: true}
		vehicleClass = sql.NullString{String: a.Vehicle.Class, Valid: true}
	}

	_, err := t.q.ExecContext(ctx, query,
		a.Username,
		a.Secret,
		a.Role,
		a.Balance,
		a.CancelCount,
		a.RatingSum,
		a.RatingCount,
		vehicleType,
		vehicleClass,
		position,
	)
	return err
}

func (t accountTable) all(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT username, secret, role, balance, cancel_count, rating_sum, rating_count, vehicle_type, vehicle_class
		FROM accounts ORDER BY position
	`

	rows, err := t.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		var vehicleType, vehicleClass sql.NullString
		if err := rows.Scan(
			&a.Username,
			&a.Secret,
			&a.Role,
			&a.Balance,
			&a.CancelCount,
			&a.RatingSum,
			&a.RatingCount,
			&vehicleType,
			&vehicleClass,
		); err != nil {
			return nil, err
		}
		if a.Role == domain.RoleCaptain {
			a.Vehicle = &domain.Vehicle{Type: vehicleType.String, Class: vehicleClass.String}
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}
