package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hearth/internal/models"
)

func TestInvitationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeEmailSender{}
	invitations := env.invitations(sender, 7*24*time.Hour)

	admin := env.mustCreateProfile(t, "Admin")
	joiner := env.mustCreateProfile(t, "Joiner")
	family := env.mustCreateFamily(t, "The Smiths", "ABC123", admin.ID)

	inv, err := invitations.CreateInvitation(context.Background(), family.ID, "joiner@example.com", admin.ID, models.RoleAdult)
	if err != nil {
		t.Fatalf("CreateInvitation() failed: %v", err)
	}
	if inv.Code == "" {
		t.Error("invitation should carry a code")
	}
	if !inv.IsValid() {
		t.Error("fresh invitation should be valid")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "joiner@example.com" {
		t.Errorf("sent emails = %v, want one to joiner@example.com", sender.sent)
	}

	m, err := invitations.RedeemInvitation(inv.Code, joiner.ID)
	if err != nil {
		t.Fatalf("RedeemInvitation() failed: %v", err)
	}
	if !m.IsActive() {
		t.Error("redeemed membership should be active")
	}
	if m.Role != models.RoleAdult {
		t.Errorf("role = %s, want adult", m.Role)
	}

	// A code redeems once.
	if _, err := invitations.RedeemInvitation(inv.Code, joiner.ID); !errors.Is(err, ErrInvitationUsed) {
		t.Errorf("second redeem should fail with ErrInvitationUsed, got %v", err)
	}
}

func TestRedeemUnknownInvitation(t *testing.T) {
	env := newTestEnv(t)
	invitations := env.invitations(&fakeEmailSender{}, time.Hour)
	joiner := env.mustCreateProfile(t, "Joiner")

	if _, err := invitations.RedeemInvitation("NOPE", joiner.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestRedeemExpiredInvitation(t *testing.T) {
	env := newTestEnv(t)
	// Negative TTL makes the invitation expired on arrival.
	invitations := env.invitations(&fakeEmailSender{}, -time.Minute)

	admin := env.mustCreateProfile(t, "Admin")
	joiner := env.mustCreateProfile(t, "Joiner")
	family := env.mustCreateFamily(t, "The Smiths", "ABC123", admin.ID)

	inv, err := invitations.CreateInvitation(context.Background(), family.ID, "joiner@example.com", admin.ID, models.RoleAdult)
	if err != nil {
		t.Fatalf("CreateInvitation() failed: %v", err)
	}

	if _, err := invitations.RedeemInvitation(inv.Code, joiner.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("expected ErrInvitationExpired, got %v", err)
	}
}

func TestCreateInvitationValidation(t *testing.T) {
	env := newTestEnv(t)
	invitations := env.invitations(&fakeEmailSender{}, time.Hour)
	admin := env.mustCreateProfile(t, "Admin")
	family := env.mustCreateFamily(t, "The Smiths", "ABC123", admin.ID)

	if _, err := invitations.CreateInvitation(context.Background(), family.ID, "not-an-email", admin.ID, models.RoleAdult); err == nil {
		t.Error("invalid email should be rejected")
	}
	if _, err := invitations.CreateInvitation(context.Background(), family.ID, "ok@example.com", admin.ID, models.Role("owner")); err == nil {
		t.Error("unknown role should be rejected")
	}
	if _, err := invitations.CreateInvitation(context.Background(), "no-such-family", "ok@example.com", admin.ID, models.RoleAdult); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("expected ErrFamilyNotFound, got %v", err)
	}
}

func TestInvitationSurvivesEmailFailure(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeEmailSender{failErr: errors.New("ses is down")}
	invitations := env.invitations(sender, time.Hour)

	admin := env.mustCreateProfile(t, "Admin")
	family := env.mustCreateFamily(t, "The Smiths", "ABC123", admin.ID)

	inv, err := invitations.CreateInvitation(context.Background(), family.ID, "joiner@example.com", admin.ID, models.RoleAdult)
	if err != nil {
		t.Fatalf("invitation should be kept despite email failure: %v", err)
	}

	list, err := invitations.ListInvitations(family.ID)
	if err != nil {
		t.Fatalf("ListInvitations() failed: %v", err)
	}
	if len(list) != 1 || list[0].Code != inv.Code {
		t.Errorf("stored invitations = %v, want the created one", list)
	}
}
