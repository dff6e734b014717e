package service

import (
	"errors"
	"testing"

	"hearth/internal/models"
)

func TestCreateProfile(t *testing.T) {
	tests := []struct {
		name         string
		displayName  string
		identityHash string
		wantErr      bool
	}{
		{
			name:         "valid profile",
			displayName:  "Alice",
			identityHash: "abcdef0123456789",
			wantErr:      false,
		},
		{
			name:         "empty display name",
			displayName:  "",
			identityHash: "abcdef0123456789",
			wantErr:      true,
		},
		{
			name:         "short identity hash",
			displayName:  "Alice",
			identityHash: "short",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			profile, err := env.profiles.CreateProfile(tt.displayName, tt.identityHash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if profile.ID == "" {
				t.Error("created profile should have an id")
			}
			if !profile.Dirty {
				t.Error("created profile should be marked dirty for sync")
			}
		})
	}
}

func TestGetProfileByIdentityHash(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.profiles.CreateProfile("Alice", "alice-identity-hash")
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	got, err := env.profiles.GetProfileByIdentityHash("alice-identity-hash")
	if err != nil {
		t.Fatalf("GetProfileByIdentityHash() failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got profile %s, want %s", got.ID, created.ID)
	}

	if _, err := env.profiles.GetProfileByIdentityHash("unknown-hash-value"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	env := newTestEnv(t)
	profile := env.mustCreateProfile(t, "Alice")

	if err := env.profiles.UpdateAvatar(profile.ID, "https://example.com/a.png"); err != nil {
		t.Fatalf("UpdateAvatar() failed: %v", err)
	}

	got, err := env.profiles.GetProfile(profile.ID)
	if err != nil {
		t.Fatalf("failed to reload profile: %v", err)
	}
	if got.AvatarURL != "https://example.com/a.png" {
		t.Errorf("avatar = %q, want updated URL", got.AvatarURL)
	}
	if !got.Dirty {
		t.Error("avatar change should mark the profile dirty")
	}
}

func TestDeleteProfileCascades(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustCreateProfile(t, "Alice")
	bob := env.mustCreateProfile(t, "Bob")
	family := env.mustCreateFamily(t, "The Smiths", "ABC123", alice.ID)

	if _, err := env.memberships.CreateMembership(family.ID, alice.ID, models.RoleParentAdmin); err != nil {
		t.Fatalf("failed to add alice: %v", err)
	}
	if _, err := env.memberships.CreateMembership(family.ID, bob.ID, models.RoleAdult); err != nil {
		t.Fatalf("failed to add bob: %v", err)
	}

	if err := env.profiles.DeleteProfile(alice.ID); err != nil {
		t.Fatalf("DeleteProfile() failed: %v", err)
	}

	// Alice's membership goes with her; the family and Bob's
	// membership stay.
	families, profiles, memberships := env.recordCounts(t)
	if families != 1 || profiles != 1 || memberships != 1 {
		t.Errorf("counts after cascade = %d/%d/%d, want 1/1/1", families, profiles, memberships)
	}
	if _, err := env.families.GetFamily(family.ID); err != nil {
		t.Errorf("family should survive profile deletion: %v", err)
	}
}
