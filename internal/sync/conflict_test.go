package sync

import (
	"errors"
	"testing"
	"time"

	"hearth/internal/models"
)

func TestRemoteWins(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		local    *time.Time
		remote   time.Time
		expected bool
	}{
		{
			name:     "remote strictly newer",
			local:    &base,
			remote:   base.Add(time.Second),
			expected: true,
		},
		{
			name:     "remote older",
			local:    &base,
			remote:   base.Add(-time.Second),
			expected: false,
		},
		{
			name:     "exact tie keeps local",
			local:    &base,
			remote:   base,
			expected: false,
		},
		{
			name:     "never synced locally loses",
			local:    nil,
			remote:   base,
			expected: true,
		},
		{
			name:     "zero remote timestamp loses",
			local:    &base,
			remote:   time.Time{},
			expected: false,
		},
		{
			name:     "both absent keeps local",
			local:    nil,
			remote:   time.Time{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remoteWins(tt.local, tt.remote); got != tt.expected {
				t.Errorf("remoteWins(%v, %v) = %v, want %v", tt.local, tt.remote, got, tt.expected)
			}
		})
	}
}

func TestResolveFamilyConflictRemoteWins(t *testing.T) {
	codec := NewCodecWithClock(testClock)
	synced := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	local := &models.Family{
		ID:        "fam-1",
		Name:      "Local Name",
		Code:      "LOC123",
		CreatedBy: "creator-1",
		CreatedAt: synced.Add(-time.Hour),
		SyncMeta:  models.SyncMeta{RemoteID: "fam-1", LastSyncedAt: &synced, Dirty: true},
	}

	server := Record{
		Type:       RecordTypeFamily,
		Name:       "fam-1",
		ModifiedAt: synced.Add(time.Minute),
		Fields: map[string]interface{}{
			"name":            "Server Name",
			"code":            "SRV456",
			"createdByUserId": "creator-server",
			"createdAt":       "2025-05-01T00:00:00Z",
		},
	}

	winner, err := codec.ResolveFamilyConflict(local, server)
	if err != nil {
		t.Fatalf("ResolveFamilyConflict() failed: %v", err)
	}
	if winner != WinnerRemote {
		t.Fatalf("winner = %s, want remote", winner)
	}
	if local.Name != "Server Name" || local.Code != "SRV456" {
		t.Errorf("server fields not applied: %+v", local)
	}
	if local.CreatedBy != "creator-1" {
		t.Errorf("identity field overwritten by conflict resolution: %q", local.CreatedBy)
	}
	if local.Dirty {
		t.Error("resolved entity should be stamped synced")
	}
}

func TestResolveFamilyConflictLocalWins(t *testing.T) {
	codec := NewCodecWithClock(testClock)
	synced := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	local := &models.Family{
		ID:        "fam-1",
		Name:      "Local Name",
		Code:      "LOC123",
		CreatedBy: "creator-1",
		CreatedAt: synced.Add(-time.Hour),
		SyncMeta:  models.SyncMeta{RemoteID: "fam-1", LastSyncedAt: &synced, Dirty: true},
	}

	server := Record{
		Type:       RecordTypeFamily,
		Name:       "fam-1",
		ModifiedAt: synced.Add(-time.Minute),
		Fields: map[string]interface{}{
			"name":            "Server Name",
			"code":            "SRV456",
			"createdByUserId": "creator-server",
			"createdAt":       "2025-05-01T00:00:00Z",
		},
	}

	winner, err := codec.ResolveFamilyConflict(local, server)
	if err != nil {
		t.Fatalf("ResolveFamilyConflict() failed: %v", err)
	}
	if winner != WinnerLocal {
		t.Fatalf("winner = %s, want local", winner)
	}
	if local.Name != "Local Name" || local.Code != "LOC123" {
		t.Errorf("local fields should survive: %+v", local)
	}
	if local.Dirty {
		t.Error("resolved entity should be stamped synced either way")
	}
}

func TestResolveConflictInvalidServerRecord(t *testing.T) {
	codec := NewCodecWithClock(testClock)
	synced := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	local := &models.Family{
		ID:       "fam-1",
		Name:     "Local Name",
		SyncMeta: models.SyncMeta{LastSyncedAt: &synced, Dirty: true},
	}

	server := Record{Type: RecordTypeFamily, Name: "fam-1", Fields: map[string]interface{}{}}
	if _, err := codec.ResolveFamilyConflict(local, server); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if local.Name != "Local Name" || !local.Dirty {
		t.Error("invalid server record must not modify local state")
	}
}

func TestResolveMembershipConflict(t *testing.T) {
	codec := NewCodecWithClock(testClock)
	synced := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	joined := synced.Add(-24 * time.Hour)

	local := &models.Membership{
		ID:       "mem-1",
		Link:     models.LinkedTo("fam-1", "user-1"),
		Role:     models.RoleAdult,
		Status:   models.StatusActive,
		JoinedAt: joined,
		SyncMeta: models.SyncMeta{RemoteID: "mem-1", LastSyncedAt: &synced, Dirty: true},
	}

	server := Record{
		Type:       RecordTypeMembership,
		Name:       "mem-1",
		ModifiedAt: synced.Add(time.Minute),
		Fields: map[string]interface{}{
			"role":            "visitor",
			"status":          "removed",
			"joinedAt":        "2025-06-01T00:00:00Z",
			"familyReference": Reference("fam-1"),
			"userReference":   Reference("user-1"),
		},
	}

	winner, err := codec.ResolveMembershipConflict(local, server)
	if err != nil {
		t.Fatalf("ResolveMembershipConflict() failed: %v", err)
	}
	if winner != WinnerRemote {
		t.Fatalf("winner = %s, want remote", winner)
	}
	if local.Role != models.RoleVisitor || local.Status != models.StatusRemoved {
		t.Errorf("server fields not applied: %+v", local)
	}
	if !local.JoinedAt.Equal(joined) {
		t.Errorf("join timestamp overwritten: %v", local.JoinedAt)
	}
}
