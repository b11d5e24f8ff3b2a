// Package store selects the pass and registration backends for a database pool.
package store

import (
	"context"
	"fmt"
	"time"

	"passbook/internal/passes/models"
	"passbook/internal/passes/store/pass"
	"passbook/internal/passes/store/registration"
	"passbook/internal/platform/database"
	"passbook/migrations"
)

// RegistrationStore is implemented by every registration backend.
type RegistrationStore interface {
	FindByPassAndDevice(ctx context.Context, passID int64, deviceID string) (*models.Registration, error)
	FindAllByPassAndDevice(ctx context.Context, passID int64, deviceID string, updatedSince *time.Time) ([]*models.Registration, error)
	Upsert(ctx context.Context, deviceID string, passID int64, pushToken string, now time.Time) (*models.Registration, error)
	Delete(ctx context.Context, r *models.Registration) error
}

// Stores bundles the two stores backing the registration service.
type Stores struct {
	Passes        pass.Store
	Registrations RegistrationStore
}

// New returns SQL-backed stores matching the pool's dialect, or in-memory
// stores when pool is nil.
func New(pool *database.Pool) (Stores, error) {
	if pool == nil {
		return NewInMemory(), nil
	}
	db := pool.DB()
	switch pool.Dialect() {
	case migrations.Postgres:
		return Stores{Passes: pass.NewPostgres(db), Registrations: registration.NewPostgres(db)}, nil
	case migrations.SQLite:
		return Stores{Passes: pass.NewSQLite(db), Registrations: registration.NewSQLite(db)}, nil
	default:
		return Stores{}, fmt.Errorf("unsupported dialect %q", pool.Dialect())
	}
}

func NewInMemory() Stores {
	return Stores{Passes: pass.NewInMemory(), Registrations: registration.NewInMemory()}
}
