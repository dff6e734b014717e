package sync

import (
	"time"

	"hearth/internal/models"
)

// Winner names which side of a conflict prevailed.
type Winner string

const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
)

// remoteWins implements last-writer-wins over wall-clock timestamps.
// A record that was never modified remotely loses; a local entity that
// was never synced has no claim and loses; otherwise the remote side
// must be strictly newer, so ties keep the local edit.
func remoteWins(localLastSynced *time.Time, remoteModified time.Time) bool {
	if remoteModified.IsZero() {
		return false
	}
	if localLastSynced == nil {
		return true
	}
	return remoteModified.After(*localLastSynced)
}

// ResolveFamilyConflict merges a conflicting server record into the
// local family. The server record is validated before the local entity
// is touched. Whichever side wins, the entity comes out stamped synced
// with its identity fields intact.
func (c *Codec) ResolveFamilyConflict(f *models.Family, server Record) (Winner, error) {
	if _, err := parseFamilyRecord(server); err != nil {
		return "", err
	}
	if remoteWins(f.LastSyncedAt, server.ModifiedAt) {
		if err := c.ImportFamily(server, f); err != nil {
			return "", err
		}
		return WinnerRemote, nil
	}
	f.MarkSynced(server.Name, c.clock())
	return WinnerLocal, nil
}

// ResolveUserProfileConflict merges a conflicting server record into
// the local profile.
func (c *Codec) ResolveUserProfileConflict(p *models.UserProfile, server Record) (Winner, error) {
	if _, err := parseUserProfileRecord(server); err != nil {
		return "", err
	}
	if remoteWins(p.LastSyncedAt, server.ModifiedAt) {
		if err := c.ImportUserProfile(server, p); err != nil {
			return "", err
		}
		return WinnerRemote, nil
	}
	p.MarkSynced(server.Name, c.clock())
	return WinnerLocal, nil
}

// ResolveMembershipConflict merges a conflicting server record into
// the local membership.
func (c *Codec) ResolveMembershipConflict(m *models.Membership, server Record) (Winner, error) {
	if _, err := parseMembershipRecord(server); err != nil {
		return "", err
	}
	if remoteWins(m.LastSyncedAt, server.ModifiedAt) {
		if err := c.ImportMembership(server, m); err != nil {
			return "", err
		}
		return WinnerRemote, nil
	}
	m.MarkSynced(server.Name, c.clock())
	return WinnerLocal, nil
}
