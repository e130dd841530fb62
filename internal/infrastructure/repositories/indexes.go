package repositories

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"seqrview.backend/internal/domain/entities"
)

// schemaIndexes are the partial unique indexes row locks cannot provide: a
// lock on zero rows guards nothing, so concurrent writers are stopped by the
// database instead.
func schemaIndexes() []string {
	active := make([]string, 0, len(entities.ActiveSessionStatuses))
	for _, s := range entities.ActiveSessionStatuses {
		active = append(active, "'"+string(s)+"'")
	}
	return []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_verifications_verified_hash
			ON user_verifications (dedupe_hash) WHERE verified = true`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_kyc_sessions_active_user_method
			ON kyc_sessions (user_id, method) WHERE status IN (` + strings.Join(active, ", ") + `)`,
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// run on every start.
func EnsureIndexes(db *gorm.DB) error {
	for _, stmt := range schemaIndexes() {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
