package models

import "time"

// Invitation is an email invite into a family. Redeeming it creates a
// membership through the normal constrained path.
type Invitation struct {
	ID          string
	FamilyID    string
	Email       string
	Code        string
	Role        Role
	InvitedBy   string // profile ID of the inviter
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	UsedBy      string
	InviterName string // populated via JOIN
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}

func (i *Invitation) IsValid() bool {
	return !i.IsExpired() && !i.IsUsed()
}
