package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"hearth/internal/database"
	"hearth/internal/models"
	"hearth/internal/repository"
	"hearth/internal/service"
	"hearth/internal/sync"
)

// newTestServer spins up the full router against a fresh database and
// a stub remote record store.
func newTestServer(t *testing.T) (*httptest.Server, *testBackend) {
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

	familyService := service.NewFamilyService(familyRepo, membershipRepo, profileRepo)
	profileService := service.NewProfileService(profileRepo)
	membershipService := service.NewMembershipService(membershipRepo, familyRepo, profileRepo)
	invitationService := service.NewInvitationService(invitationRepo, familyRepo, profileRepo, membershipService, nopEmail{}, time.Hour)

	// Remote store that has no records; notifications for unknown
	// records mirror deletions.
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(remote.Close)

	client := sync.NewHTTPClient(remote.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}))
	engine := sync.NewEngine(familyRepo, profileRepo, membershipRepo, client, 1, time.Millisecond)

	server := httptest.NewServer(NewRouter(familyService, profileService, membershipService, invitationService, engine))
	t.Cleanup(server.Close)

	return server, &testBackend{familyRepo: familyRepo}
}

type testBackend struct {
	familyRepo *repository.FamilyRepository
}

type nopEmail struct{}

func (nopEmail) SendInvitationEmail(_ context.Context, _, _, _, _, _ string) error { return nil }

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestFamilyEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	var profile models.UserProfile
	resp := postJSON(t, server.URL+"/profiles", map[string]string{
		"displayName":  "Alice",
		"identityHash": "alice-hash-123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create profile status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &profile)

	var family models.Family
	resp = postJSON(t, server.URL+"/families", map[string]string{
		"name":      "The Smiths",
		"code":      "ABC123",
		"createdBy": profile.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create family status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &family)

	// Duplicate code maps to 409.
	resp = postJSON(t, server.URL+"/families", map[string]string{
		"name":      "Copycats",
		"code":      "ABC123",
		"createdBy": profile.ID,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate code status = %d, want 409", resp.StatusCode)
	}

	// Invalid fields map to 400 with violations listed.
	resp = postJSON(t, server.URL+"/families", map[string]string{
		"name":      "A",
		"code":      "x",
		"createdBy": profile.ID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid family status = %d, want 400", resp.StatusCode)
	}
	var errBody struct {
		Violations []string `json:"violations"`
	}
	decodeBody(t, resp, &errBody)
	if len(errBody.Violations) != 2 {
		t.Errorf("violations = %v, want 2 entries", errBody.Violations)
	}

	// Case-sensitive code lookup.
	resp, err := http.Get(server.URL + "/families/by-code/abc123")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("differently-cased lookup status = %d, want 404", resp.StatusCode)
	}
}

func TestMembershipEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	var alice, bob models.UserProfile
	decodeBody(t, postJSON(t, server.URL+"/profiles", map[string]string{"displayName": "Alice", "identityHash": "alice-hash-123"}), &alice)
	decodeBody(t, postJSON(t, server.URL+"/profiles", map[string]string{"displayName": "Bob", "identityHash": "bob-hash-4567"}), &bob)

	var family models.Family
	decodeBody(t, postJSON(t, server.URL+"/families", map[string]string{"name": "The Smiths", "code": "ABC123", "createdBy": alice.ID}), &family)

	resp := postJSON(t, server.URL+"/memberships", map[string]string{"familyId": family.ID, "userId": alice.ID, "role": "parent_admin"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Second parent admin is a constraint violation.
	resp = postJSON(t, server.URL+"/memberships", map[string]string{"familyId": family.ID, "userId": bob.ID, "role": "parent_admin"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second admin status = %d, want 409", resp.StatusCode)
	}

	// Unknown role is a validation failure.
	resp = postJSON(t, server.URL+"/memberships", map[string]string{"familyId": family.ID, "userId": bob.ID, "role": "owner"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown role status = %d, want 400", resp.StatusCode)
	}
}

func TestSyncNotificationMirrorsDelete(t *testing.T) {
	server, backend := newTestServer(t)

	var profile models.UserProfile
	decodeBody(t, postJSON(t, server.URL+"/profiles", map[string]string{"displayName": "Alice", "identityHash": "alice-hash-123"}), &profile)
	var family models.Family
	decodeBody(t, postJSON(t, server.URL+"/families", map[string]string{"name": "The Smiths", "code": "ABC123", "createdBy": profile.ID}), &family)

	// The stub remote 404s every fetch, so the notification mirrors a
	// deletion.
	resp := postJSON(t, server.URL+"/sync/notifications", map[string]string{"recordType": "family", "recordName": family.ID})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("notification status = %d, want 204", resp.StatusCode)
	}

	gone, err := backend.familyRepo.GetFamilyByID(family.ID)
	if err != nil {
		t.Fatalf("failed to check family: %v", err)
	}
	if gone != nil {
		t.Error("notified deletion should remove the local family")
	}
}
