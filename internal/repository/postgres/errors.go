package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"asset-rental-backend/internal/domain"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
)

// mapError translates driver errors into domain errors. notFound is returned
// for sql.ErrNoRows.
func mapError(err error, notFound *domain.Error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqSerializationFail, pqDeadlockDetected:
			return domain.ErrConflict.WithMessage(fmt.Sprintf("%s: %s", op, pqErr.Message))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// expectOne turns a zero-row check-and-set update into err.
func expectOne(res sql.Result, err error) error {
	n, rErr := res.RowsAffected()
	if rErr != nil {
		return rErr
	}
	if n == 0 {
		return err
	}
	return nil
}
