package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/repository"
)

// testEnv bundles a fresh database with every repository and service
// so each test starts from an empty store.
type testEnv struct {
	db             *database.DB
	familyRepo     *repository.FamilyRepository
	profileRepo    *repository.ProfileRepository
	membershipRepo *repository.MembershipRepository
	invitationRepo *repository.InvitationRepository

	families    *FamilyService
	profiles    *ProfileService
	memberships *MembershipService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	return &testEnv{
		db:             db,
		familyRepo:     familyRepo,
		profileRepo:    profileRepo,
		membershipRepo: membershipRepo,
		invitationRepo: invitationRepo,
		families:       NewFamilyService(familyRepo, membershipRepo, profileRepo),
		profiles:       NewProfileService(profileRepo),
		memberships:    NewMembershipService(membershipRepo, familyRepo, profileRepo),
	}
}

// mustCreateProfile is a shorthand for tests that need a profile to
// exist before the behavior under test.
func (e *testEnv) mustCreateProfile(t *testing.T, displayName string) *models.UserProfile {
	t.Helper()
	profile, err := e.profiles.CreateProfile(displayName, "hash-"+displayName+"-0123456789")
	if err != nil {
		t.Fatalf("failed to create profile %q: %v", displayName, err)
	}
	return profile
}

func (e *testEnv) mustCreateFamily(t *testing.T, name, code, creatorID string) *models.Family {
	t.Helper()
	family, err := e.families.CreateFamily(name, code, creatorID)
	if err != nil {
		t.Fatalf("failed to create family %q: %v", name, err)
	}
	return family
}

// recordCounts snapshots the table sizes so tests can assert that a
// rejected operation left the store untouched.
func (e *testEnv) recordCounts(t *testing.T) (families, profiles, memberships int) {
	t.Helper()
	var err error
	if families, err = e.familyRepo.CountFamilies(); err != nil {
		t.Fatalf("failed to count families: %v", err)
	}
	if profiles, err = e.profileRepo.CountProfiles(); err != nil {
		t.Fatalf("failed to count profiles: %v", err)
	}
	if memberships, err = e.membershipRepo.CountMemberships(); err != nil {
		t.Fatalf("failed to count memberships: %v", err)
	}
	return families, profiles, memberships
}

// fakeEmailSender records invitation emails instead of sending them.
type fakeEmailSender struct {
	sent    []string
	failErr error
}

func (f *fakeEmailSender) SendInvitationEmail(_ context.Context, toEmail, _, _, _, _ string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

func (e *testEnv) invitations(email EmailSender, ttl time.Duration) *InvitationService {
	return NewInvitationService(e.invitationRepo, e.familyRepo, e.profileRepo, e.memberships, email, ttl)
}
