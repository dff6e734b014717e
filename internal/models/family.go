package models

import "time"

// Family represents a shared household that users join with a code
type Family struct {
	ID        string
	Name      string
	Code      string // join code, case-sensitive, unique among families
	CreatedBy string // profile ID of the creator
	CreatedAt time.Time
	SyncMeta
}

// FamilyWithMembers combines a family with its membership rows and the
// profiles they reference
type FamilyWithMembers struct {
	Family      Family
	Memberships []Membership
	Profiles    []UserProfile
}

// ActiveMembers returns the memberships with status active.
func (f *FamilyWithMembers) ActiveMembers() []Membership {
	var active []Membership
	for _, m := range f.Memberships {
		if m.Status == StatusActive {
			active = append(active, m)
		}
	}
	return active
}

// ParentAdmin returns the first active parent-admin membership by join
// time. The store can technically hold more than one; callers see only
// the intended single admin.
func (f *FamilyWithMembers) ParentAdmin() (Membership, bool) {
	var found Membership
	var ok bool
	for _, m := range f.Memberships {
		if m.Role != RoleParentAdmin || m.Status != StatusActive {
			continue
		}
		if !ok || m.JoinedAt.Before(found.JoinedAt) {
			found = m
			ok = true
		}
	}
	return found, ok
}

// HasParentAdmin reports whether the family has an active parent-admin.
func (f *FamilyWithMembers) HasParentAdmin() bool {
	_, ok := f.ParentAdmin()
	return ok
}
