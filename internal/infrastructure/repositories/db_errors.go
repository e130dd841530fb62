package repositories

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pqUniqueViolation is the SQLSTATE of a unique constraint violation
const pqUniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports a duplicate key from either driver path: gorm's
// translated error, or a raw *pq.Error when the pool was opened with lib/pq
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
