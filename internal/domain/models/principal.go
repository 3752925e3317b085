package models

import "time"

// Principal is the authenticated caller of a single request. It is never
// persisted.
type Principal struct {
	SubjectID string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Claims carries the full verified claim set for handlers that need
	// claims beyond the named fields.
	Claims map[string]interface{}
}
