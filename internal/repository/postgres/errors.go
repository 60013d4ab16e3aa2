package postgres

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

const integrityViolation pq.ErrorClass = "23"

// classify maps driver errors onto the gateway taxonomy: missing rows become
// NotFound, integrity violations become Constraint, everything else is Transport.
// Errors that are already typed pass through.
func classify(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Code(err) != 0 {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(entity, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == integrityViolation {
		return errors.Constraint(constraintMessage(entity, pqErr), err)
	}
	return errors.Transport(err)
}

func constraintMessage(entity string, pqErr *pq.Error) string {
	switch pqErr.Code.Name() {
	case "foreign_key_violation":
		return fmt.Sprintf("%s references a record that does not exist", entity)
	case "unique_violation":
		return fmt.Sprintf("%s already exists", entity)
	case "not_null_violation":
		return fmt.Sprintf("%s is missing a required field", entity)
	case "check_violation":
		return fmt.Sprintf("%s has a value the store rejects", entity)
	default:
		return fmt.Sprintf("%s rejected by the store", entity)
	}
}
