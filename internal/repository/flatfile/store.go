// Package flatfile persists the marketplace as two comma-separated text
// files, one line per account and one line per ride.
//
// Account line:
//
//	Type,username,secret,balance,cancelCount,ratingSum,ratingCount[,vehicleType,vehicleClass]
//
// Ride line:
//
//	captain,primaryPassenger,route,departure,return,vehicleType,vehicleClass,
//	totalSeats,occupiedSeats,completed(0/1),fare,rated(0/1),passengers(;-separated),id
//
// Lines with too few fields are skipped. The primaryPassenger and
// occupiedSeats columns are derived from the passenger list on write.
package flatfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

const (
	// UsersFile and RidesFile are the file names inside the data directory.
	UsersFile = "users.txt"
	RidesFile = "rides.txt"
)

// Store is a file-backed implementation of repository.SnapshotStore.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Load reads both files. Missing files are treated as empty.
func (s *Store) Load(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}

	err := s.readRecords(UsersFile, func(line int, fields []string) {
		account, ok := decodeAccount(fields)
		if !ok {
			s.logger.Warn("skipping account record", "file", UsersFile, "line", line, "fields", len(fields))
			return
		}
		snap.Accounts = append(snap.Accounts, account)
	})
	if err != nil {
		return nil, err
	}

	err = s.readRecords(RidesFile, func(line int, fields []string) {
		ride, ok := decodeRide(fields)
		if !ok {
			s.logger.Warn("skipping ride record", "file", RidesFile, "line", line, "fields", len(fields))
			return
		}
		snap.Rides = append(snap.Rides, ride)
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Save rewrites both files. Each file is written to a temporary sibling and
// renamed into place so a failed write never truncates the previous state.
func (s *Store) Save(ctx context.Context, snap *repository.Snapshot) error {
	accounts := make([][]string, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accounts = append(accounts, encodeAccount(a))
	}
	if err := s.writeRecords(UsersFile, accounts); err != nil {
		return err
	}

	rides := make([][]string, 0, len(snap.Rides))
	for _, r := range snap.Rides {
		rides = append(rides, encodeRide(r))
	}
	return s.writeRecords(RidesFile, rides)
}

func (s *Store) readRecords(name string, fn func(line int, fields []string)) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.logger.Warn("skipping malformed line", "file", name, "line", parseErr.Line, "error", err)
				continue
			}
			return fmt.Errorf("read %s: %w", name, err)
		}
		line, _ := r.FieldPos(0)
		fn(line, fields)
	}
}

func (s *Store) writeRecords(name string, records [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

var _ repository.SnapshotStore = (*Store)(nil)

// accountRole and roleLabel translate between domain roles and the
// capitalised type column.
func accountRole(label string) (domain.Role, bool) {
	switch label {
	case "Passenger":
		return domain.RolePassenger, true
	case "Captain":
		return domain.RoleCaptain, true
	}
	return "", false
}

func roleLabel(role domain.Role) string {
	if role == domain.RoleCaptain {
		return "Captain"
	}
	return "Passenger"
}
