package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
)

// PostgresStore persists registrations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, device_library_identifier, pass_id, push_token, created_at, updated_at`

func (s *PostgresStore) FindByPassAndDevice(ctx context.Context, passID int64, deviceID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE pass_id = $1 AND device_library_identifier = $2`
	r, err := scanRegistration(s.db.QueryRowContext(ctx, query, passID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindAllByPassAndDevice(ctx context.Context, passID int64, deviceID string, updatedSince *time.Time) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE pass_id = $1 AND device_library_identifier = $2`
	args := []any{passID, deviceID}
	if updatedSince != nil {
		query += ` AND updated_at >= $3`
		args = append(args, *updatedSince)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0, 1)
	for rows.Next() {
		r, err := scanRegistration(rows)
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

// Upsert inserts or refreshes the (device, pass) row in one statement, so
// concurrent callers converge on a single row.
func (s *PostgresStore) Upsert(ctx context.Context, deviceID string, passID int64, pushToken string, now time.Time) (*models.Registration, error) {
	query := `
		INSERT INTO registrations (device_library_identifier, pass_id, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (device_library_identifier, pass_id) DO UPDATE
		SET push_token = EXCLUDED.push_token,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + registrationColumns
	r, err := scanRegistration(s.db.QueryRowContext(ctx, query, deviceID, passID, pushToken, now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("pass %d: %w", passID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("upsert registration: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, r *models.Registration) error {
	if r == nil {
		return fmt.Errorf("registration is required")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, r.ID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var r models.Registration
	if err := row.Scan(&r.ID, &r.DeviceLibraryIdentifier, &r.PassID, &r.PushToken, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
