package pass

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

// SQLiteStore persists passes in a SQLite file. Timestamps are stored as
// Unix nanoseconds so ordering and range filters stay exact.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Create(ctx context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO passes (pass_type_identifier, serial_number, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.PassTypeIdentifier, p.SerialNumber, string(p.Data), p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
	if err != nil {
		if isSQLiteUnique(err) {
			return fmt.Errorf("pass %s already exists: %w", p.Identity(), sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create pass: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create pass id: %w", err)
	}
	p.ID = id
	return nil
}

func (s *SQLiteStore) FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE pass_type_identifier = ? AND serial_number = ?`, passType, serial)
	p, err := scanSQLitePass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find pass by identity: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) FindByType(ctx context.Context, passType string) ([]*models.Pass, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+passColumns+` FROM passes WHERE pass_type_identifier = ? ORDER BY serial_number`, passType)
	if err != nil {
		return nil, fmt.Errorf("find passes by type: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Pass, 0)
	for rows.Next() {
		p, err := scanSQLitePass(rows)
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

func (s *SQLiteStore) Touch(ctx context.Context, p *models.Pass) error {
	if p == nil {
		return fmt.Errorf("pass is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE passes SET data = ?, updated_at = ?
		WHERE pass_type_identifier = ? AND serial_number = ?
	`, string(p.Data), p.UpdatedAt.UnixNano(), p.PassTypeIdentifier, p.SerialNumber)
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

func scanSQLitePass(row rowScanner) (*models.Pass, error) {
	var (
		p                models.Pass
		data             string
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.PassTypeIdentifier, &p.SerialNumber, &data, &created, &updated); err != nil {
		return nil, err
	}
	p.Data = []byte(data)
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func isSQLiteUnique(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
