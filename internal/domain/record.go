// Package domain defines the core business entities of the scheduling
// platform. These models are independent of the remote store and represent
// the canonical (camelCase) shapes used throughout the BFA.
package domain

import "time"

// Record is implemented by every tenant-owned entity.
type Record interface {
	// RecordID is the entity's primary key.
	RecordID() string
	// Tenant is the owning company id.
	Tenant() string
	// Version is the optimistic-concurrency token ("" when unknown).
	Version() string
}

// versionOf renders an updated_at timestamp as a version token.
func versionOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// DateLayout is the wire/app layout for calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire/app layout for wall-clock times.
const TimeLayout = "15:04"
