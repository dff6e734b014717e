package models

import "time"

// UserProfile represents a person known to the household store. The
// identity hash is produced by the platform sign-in flow and treated as
// an opaque string here.
type UserProfile struct {
	ID           string
	DisplayName  string
	IdentityHash string
	AvatarURL    string // optional, empty when the profile has no avatar
	CreatedAt    time.Time
	SyncMeta
}
