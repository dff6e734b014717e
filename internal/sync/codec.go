package sync

import (
	"errors"
	"fmt"
	"time"

	"hearth/internal/models"
)

// ErrInvalidRecord indicates a remote record that is structurally
// incomplete or carries an out-of-range enum value. Local state is
// never modified when it is returned.
var ErrInvalidRecord = errors.New("invalid remote record")

// ErrUnlinkedMembership indicates a membership whose family/user link
// has been cleared; such rows cannot be exported because the remote
// schema requires both references.
var ErrUnlinkedMembership = errors.New("membership is not linked to a family and user")

// Codec converts entities to and from remote records. Exports omit
// absent optional fields rather than writing null placeholders; imports
// ignore unknown fields for forward compatibility and leave missing
// optional fields untouched.
type Codec struct {
	clock func() time.Time
}

// NewCodec creates a codec that stamps sync metadata with time.Now.
func NewCodec() *Codec {
	return &Codec{clock: time.Now}
}

// NewCodecWithClock creates a codec with an injectable clock for tests.
func NewCodecWithClock(clock func() time.Time) *Codec {
	return &Codec{clock: clock}
}

// ExportFamily converts a family into its remote record form.
func (c *Codec) ExportFamily(f *models.Family) Record {
	rec := Record{
		Type: RecordTypeFamily,
		Name: recordName(f.RemoteID, f.ID),
		Fields: map[string]interface{}{
			"name":            f.Name,
			"code":            f.Code,
			"createdByUserId": f.CreatedBy,
			"createdAt":       formatTime(f.CreatedAt),
		},
	}
	if f.LastSyncedAt != nil {
		rec.ModifiedAt = *f.LastSyncedAt
	}
	return rec
}

// ImportFamily applies a remote family record onto the entity and
// stamps it synced. Identity fields (id, creator, creation time) are
// only set when absent locally, never overwritten.
func (c *Codec) ImportFamily(rec Record, f *models.Family) error {
	fields, err := parseFamilyRecord(rec)
	if err != nil {
		return err
	}

	f.Name = fields.name
	f.Code = fields.code
	if f.ID == "" {
		f.ID = rec.Name
	}
	if f.CreatedBy == "" {
		f.CreatedBy = fields.createdBy
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = fields.createdAt
	}

	f.MarkSynced(rec.Name, c.clock())
	return nil
}

// ExportUserProfile converts a profile into its remote record form.
// The avatar reference is omitted entirely when the profile has none.
func (c *Codec) ExportUserProfile(p *models.UserProfile) Record {
	fields := map[string]interface{}{
		"displayName":     p.DisplayName,
		"appleUserIdHash": p.IdentityHash,
		"createdAt":       formatTime(p.CreatedAt),
	}
	if p.AvatarURL != "" {
		fields["avatarUrl"] = p.AvatarURL
	}
	rec := Record{
		Type:   RecordTypeUserProfile,
		Name:   recordName(p.RemoteID, p.ID),
		Fields: fields,
	}
	if p.LastSyncedAt != nil {
		rec.ModifiedAt = *p.LastSyncedAt
	}
	return rec
}

// ImportUserProfile applies a remote profile record onto the entity
// and stamps it synced. A missing avatarUrl leaves the local avatar
// untouched rather than clearing it.
func (c *Codec) ImportUserProfile(rec Record, p *models.UserProfile) error {
	fields, err := parseUserProfileRecord(rec)
	if err != nil {
		return err
	}

	p.DisplayName = fields.displayName
	p.IdentityHash = fields.identityHash
	if fields.avatarURL != nil {
		p.AvatarURL = *fields.avatarURL
	}
	if p.ID == "" {
		p.ID = rec.Name
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = fields.createdAt
	}

	p.MarkSynced(rec.Name, c.clock())
	return nil
}

// ExportMembership converts a membership into its remote record form.
// Both reference fields carry the deleteSelf action so the remote side
// cascades like the local store does.
func (c *Codec) ExportMembership(m *models.Membership) (Record, error) {
	familyID, fok := m.Link.FamilyID()
	userID, uok := m.Link.UserID()
	if !fok || !uok {
		return Record{}, ErrUnlinkedMembership
	}

	fields := map[string]interface{}{
		"role":            string(m.Role),
		"status":          string(m.Status),
		"joinedAt":        formatTime(m.JoinedAt),
		"familyReference": Reference(familyID),
		"userReference":   Reference(userID),
	}
	if m.LastRoleChangeAt != nil {
		fields["lastRoleChangeAt"] = formatTime(*m.LastRoleChangeAt)
	}
	rec := Record{
		Type:   RecordTypeMembership,
		Name:   recordName(m.RemoteID, m.ID),
		Fields: fields,
	}
	if m.LastSyncedAt != nil {
		rec.ModifiedAt = *m.LastSyncedAt
	}
	return rec, nil
}

// ImportMembership applies a remote membership record onto the entity
// and stamps it synced. The join timestamp is immutable once set.
func (c *Codec) ImportMembership(rec Record, m *models.Membership) error {
	fields, err := parseMembershipRecord(rec)
	if err != nil {
		return err
	}

	m.Role = fields.role
	m.Status = fields.status
	m.Link = models.LinkedTo(fields.familyID, fields.userID)
	if fields.lastRoleChangeAt != nil {
		m.LastRoleChangeAt = fields.lastRoleChangeAt
	}
	if m.ID == "" {
		m.ID = rec.Name
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = fields.joinedAt
	}

	m.MarkSynced(rec.Name, c.clock())
	return nil
}

// parsed field sets, shared between import and conflict resolution

type familyFields struct {
	name      string
	code      string
	createdBy string
	createdAt time.Time
}

func parseFamilyRecord(rec Record) (*familyFields, error) {
	if rec.Type != RecordTypeFamily {
		return nil, fmt.Errorf("%w: expected %s record, got %q", ErrInvalidRecord, RecordTypeFamily, rec.Type)
	}
	name, err := requiredString(rec, "name")
	if err != nil {
		return nil, err
	}
	code, err := requiredString(rec, "code")
	if err != nil {
		return nil, err
	}
	createdBy, err := requiredString(rec, "createdByUserId")
	if err != nil {
		return nil, err
	}
	createdAt, err := requiredTime(rec, "createdAt")
	if err != nil {
		return nil, err
	}
	return &familyFields{name: name, code: code, createdBy: createdBy, createdAt: createdAt}, nil
}

type userProfileFields struct {
	displayName  string
	identityHash string
	createdAt    time.Time
	avatarURL    *string
}

func parseUserProfileRecord(rec Record) (*userProfileFields, error) {
	if rec.Type != RecordTypeUserProfile {
		return nil, fmt.Errorf("%w: expected %s record, got %q", ErrInvalidRecord, RecordTypeUserProfile, rec.Type)
	}
	displayName, err := requiredString(rec, "displayName")
	if err != nil {
		return nil, err
	}
	identityHash, err := requiredString(rec, "appleUserIdHash")
	if err != nil {
		return nil, err
	}
	createdAt, err := requiredTime(rec, "createdAt")
	if err != nil {
		return nil, err
	}

	fields := &userProfileFields{displayName: displayName, identityHash: identityHash, createdAt: createdAt}
	if v, ok := rec.Fields["avatarUrl"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is not a string", ErrInvalidRecord, "avatarUrl")
		}
		fields.avatarURL = &s
	}
	return fields, nil
}

type membershipFields struct {
	role             models.Role
	status           models.Status
	joinedAt         time.Time
	familyID         string
	userID           string
	lastRoleChangeAt *time.Time
}

func parseMembershipRecord(rec Record) (*membershipFields, error) {
	if rec.Type != RecordTypeMembership {
		return nil, fmt.Errorf("%w: expected %s record, got %q", ErrInvalidRecord, RecordTypeMembership, rec.Type)
	}
	roleStr, err := requiredString(rec, "role")
	if err != nil {
		return nil, err
	}
	role := models.Role(roleStr)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRecord, roleStr)
	}
	statusStr, err := requiredString(rec, "status")
	if err != nil {
		return nil, err
	}
	status := models.Status(statusStr)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, statusStr)
	}
	joinedAt, err := requiredTime(rec, "joinedAt")
	if err != nil {
		return nil, err
	}

	familyID, ok := referenceName(rec.Fields["familyReference"])
	if !ok {
		return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidRecord, "familyReference")
	}
	userID, ok := referenceName(rec.Fields["userReference"])
	if !ok {
		return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidRecord, "userReference")
	}

	fields := &membershipFields{
		role:     role,
		status:   status,
		joinedAt: joinedAt,
		familyID: familyID,
		userID:   userID,
	}
	if _, ok := rec.Fields["lastRoleChangeAt"]; ok {
		t, err := requiredTime(rec, "lastRoleChangeAt")
		if err != nil {
			return nil, err
		}
		fields.lastRoleChangeAt = &t
	}
	return fields, nil
}

func requiredString(rec Record, key string) (string, error) {
	v, ok := rec.Fields[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required field %q", ErrInvalidRecord, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: field %q is empty or not a string", ErrInvalidRecord, key)
	}
	return s, nil
}

func requiredTime(rec Record, key string) (time.Time, error) {
	s, err := requiredString(rec, key)
	if err != nil {
		return time.Time{}, err
	}
	t, perr := time.Parse(time.RFC3339Nano, s)
	if perr != nil {
		return time.Time{}, fmt.Errorf("%w: field %q is not a timestamp", ErrInvalidRecord, key)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// recordName prefers the known remote identifier; a record that has
// never been pushed is named by its local id.
func recordName(remoteID, localID string) string {
	if remoteID != "" {
		return remoteID
	}
	return localID
}
