package pass

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
)

// PostgresStore persists passes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const passColumns = `id, pass_type_identifier, serial_number, data, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	query := `
		INSERT INTO passes (pass_type_identifier, serial_number, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		p.PassTypeIdentifier,
		p.SerialNumber,
		string(p.Data),
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pass %s already exists: %w", p.Identity(), sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create pass: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE pass_type_identifier = $1 AND serial_number = $2`
	p, err := scanPass(s.db.QueryRowContext(ctx, query, passType, serial))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pass by identity: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByType(ctx context.Context, passType string) ([]*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE pass_type_identifier = $1 ORDER BY serial_number`
	rows, err := s.db.QueryContext(ctx, query, passType)
	if err != nil {
		return nil, fmt.Errorf("find passes by type: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Pass, 0)
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Touch(ctx context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	query := `
		UPDATE passes
		SET data = $3,
			updated_at = $4
		WHERE pass_type_identifier = $1 AND serial_number = $2
	`
	res, err := s.db.ExecContext(ctx, query, p.PassTypeIdentifier, p.SerialNumber, string(p.Data), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("touch pass: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch pass rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (*models.Pass, error) {
	var (
		p    models.Pass
		data []byte
	)
	if err := row.Scan(&p.ID, &p.PassTypeIdentifier, &p.SerialNumber, &data, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Data = data
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
