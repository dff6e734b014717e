package models

import "time"

// SyncMeta tracks a record's relationship to the remote service.
// Every syncable entity embeds one.
type SyncMeta struct {
	// RemoteID is the identifier of the corresponding remote record,
	// empty until the record has been pushed at least once.
	RemoteID string

	// LastSyncedAt is the time of the last successful sync for this
	// record. Nil means the record has never been synced.
	LastSyncedAt *time.Time

	// Dirty indicates local changes not yet reflected remotely.
	Dirty bool
}

// MarkDirty flags the record as having unsynced local changes.
func (m *SyncMeta) MarkDirty() {
	m.Dirty = true
}

// MarkSynced records a successful sync against the given remote record.
func (m *SyncMeta) MarkSynced(remoteID string, at time.Time) {
	m.RemoteID = remoteID
	m.LastSyncedAt = &at
	m.Dirty = false
}
