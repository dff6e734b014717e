package service

import "errors"

var (
	ErrFamilyNotFound     = errors.New("family not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationUsed     = errors.New("invitation has already been used")
)

// ConstraintError is a cross-entity business rule violation: duplicate
// active membership, parent-admin uniqueness, or a taken family code.
// It is always recoverable and never leaves partial state behind.
type ConstraintError struct {
	Rule string
}

func (e *ConstraintError) Error() string {
	return e.Rule
}

// IsConstraintViolation reports whether err is a ConstraintError.
func IsConstraintViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}
