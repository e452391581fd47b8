package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
)

// Postgres SQLSTATE codes the repositories classify.
const (
	sqlstateStringTooLong        = "22001"
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateLockNotAvailable     = "55P03"
)

// lockTimeout bounds how long a read-modify-write waits for a row lock held
// by a concurrent writer.
const lockTimeout = 5 * time.Second

// storageError maps a driver error onto a domain kind. Errors that already
// carry a kind pass through unchanged.
func storageError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected, sqlstateLockNotAvailable:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		case sqlstateStringTooLong:
			return &service.ValidationError{Fields: []string{pgErr.Message}}
		}
	}
	return domain.Unavailable(err)
}

// lockForUpdate sets the transaction's lock timeout and returns tx with a
// FOR UPDATE clause. A timeout comes back as 55P03.
func lockForUpdate(tx *gorm.DB) (*gorm.DB, error) {
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return nil, err
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}), nil
}

// checkStatus rejects rows whose status the state machine does not know.
func checkStatus(a *appointment.Appointment) error {
	if !a.Status.IsValid() {
		return domain.Unavailable(fmt.Errorf("appointment %s has unknown status %q", a.ID, a.Status))
	}
	return nil
}
