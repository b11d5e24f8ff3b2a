package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
)

// SQLiteStore persists registrations in SQLite with Unix-nanosecond timestamps.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) FindByPassAndDevice(ctx context.Context, passID int64, deviceID string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE pass_id = ? AND device_library_identifier = ?`, passID, deviceID)
	r, err := scanSQLiteRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) FindAllByPassAndDevice(ctx context.Context, passID int64, deviceID string, updatedSince *time.Time) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE pass_id = ? AND device_library_identifier = ?`
	args := []any{passID, deviceID}
	if updatedSince != nil {
		query += ` AND updated_at >= ?`
		args = append(args, updatedSince.UnixNano())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0, 1)
	for rows.Next() {
		r, err := scanSQLiteRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, deviceID string, passID int64, pushToken string, now time.Time) (*models.Registration, error) {
	ts := now.UnixNano()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO registrations (device_library_identifier, pass_id, push_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_library_identifier, pass_id) DO UPDATE
		SET push_token = excluded.push_token,
			updated_at = excluded.updated_at
		RETURNING `+registrationColumns, deviceID, passID, pushToken, ts, ts)
	r, err := scanSQLiteRegistration(row)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return nil, fmt.Errorf("pass %d: %w", passID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("upsert registration: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, r *models.Registration) error {
	if r == nil {
		return fmt.Errorf("registration is required")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, r.ID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanSQLiteRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r                models.Registration
		created, updated int64
	)
	if err := row.Scan(&r.ID, &r.DeviceLibraryIdentifier, &r.PassID, &r.PushToken, &created, &updated); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updated).UTC()
	return &r, nil
}
