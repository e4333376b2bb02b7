package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// DebitIdempotencyKey builds the period-stable idempotency key for a scan
// debit. The key encodes the due occurrence (account, tier, unit and the
// next-scheduled time that made the unit due), so a duplicate invocation of
// the same run produces the same key and the ledger's unique index suppresses
// the second debit. A genuinely new attempt in the next period gets a new key
// because the due time has moved. The paired refund reuses the same key.
func DebitIdempotencyKey(accountID string, tier int, unitID string, dueAt *time.Time) string {
	var due int64
	if dueAt != nil {
		due = dueAt.UTC().Unix()
	}
	return fmt.Sprintf("debit_%s_t%d_%s_%d", accountID, tier, unitID, due)
}
