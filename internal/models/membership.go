package models

import "time"

// Role is the closed set of roles a membership can hold.
type Role string

const (
	RoleParentAdmin Role = "parent_admin"
	RoleAdult       Role = "adult"
	RoleKid         Role = "kid"
	RoleVisitor     Role = "visitor"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleParentAdmin, RoleAdult, RoleKid, RoleVisitor:
		return true
	}
	return false
}

// Status is the membership lifecycle state. It is a finite set, not a
// boolean: removed rows are kept so a user can re-join later.
type Status string

const (
	StatusActive  Status = "active"
	StatusInvited Status = "invited"
	StatusRemoved Status = "removed"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInvited, StatusRemoved:
		return true
	}
	return false
}

// MembershipLink is the link between a membership and the family/user
// it joins. A membership row can outlive its endpoints, in which case
// the link is orphaned rather than half-populated.
type MembershipLink struct {
	familyID string
	userID   string
	linked   bool
}

// LinkedTo returns a link pointing at the given family and user.
func LinkedTo(familyID, userID string) MembershipLink {
	return MembershipLink{familyID: familyID, userID: userID, linked: true}
}

// OrphanedLink returns a link whose endpoints have been cleared.
func OrphanedLink() MembershipLink {
	return MembershipLink{}
}

// Linked reports whether the link still points at a family and user.
func (l MembershipLink) Linked() bool {
	return l.linked
}

// FamilyID returns the linked family id, or false when orphaned.
func (l MembershipLink) FamilyID() (string, bool) {
	return l.familyID, l.linked
}

// UserID returns the linked user id, or false when orphaned.
func (l MembershipLink) UserID() (string, bool) {
	return l.userID, l.linked
}

// Membership joins one user profile to one family with a role. The
// membership does not own either endpoint: deleting a membership never
// cascades to the family or the profile.
type Membership struct {
	ID               string
	Link             MembershipLink
	Role             Role
	Status           Status
	JoinedAt         time.Time  // immutable once set
	LastRoleChangeAt *time.Time // nil until the first role change
	SyncMeta

	// UserDisplayName is populated via JOIN for listing; empty when
	// not loaded or when the profile is gone.
	UserDisplayName string
}

// IsActive reports whether the membership is currently active.
func (m *Membership) IsActive() bool {
	return m.Status == StatusActive
}

// DisplayName returns the member's display name, degrading to
// "Unknown" when the owning profile is gone or was not loaded.
func (m *Membership) DisplayName() string {
	if !m.Link.Linked() || m.UserDisplayName == "" {
		return "Unknown"
	}
	return m.UserDisplayName
}
