// Package store wraps the database tables behind typed read and write
// interfaces: the three source collections (needs, responses, hours) are
// read-only to the reconciliation core, and the derived shift status
// collection is written only through the upsert-by-key operations here.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup by key matches nothing.
var ErrNotFound = errors.New("store: record not found")

// sourceTables are the collections the reconciliation pass reads from.
var sourceTables = []string{"needs", "responses", "hours"}

// MissingSources reports which source collections do not exist yet. A
// non-empty result means the reconciliation pass should be skipped.
func MissingSources(db *gorm.DB) []string {
	var missing []string
	for _, name := range sourceTables {
		if !db.Migrator().HasTable(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
