package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestCreateTeamAndJoinByCode(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	svc := NewTeamService(e.store.Teams(), testLogger())

	team, err := svc.CreateTeam(ctx, "  Die Bullen  ")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.Name != "Die Bullen" {
		t.Errorf("name = %q", team.Name)
	}
	if !team.Balance.Equal(domain.StartingBalance) {
		t.Errorf("balance = %s, want %s", team.Balance, domain.StartingBalance)
	}
	if len(team.Code) != 8 || team.Code != strings.ToUpper(team.Code) {
		t.Errorf("code = %q", team.Code)
	}

	// Join codes are case and whitespace tolerant on input.
	joined, err := svc.JoinTeam(ctx, "  "+strings.ToLower(team.Code)+" ")
	if err != nil {
		t.Fatalf("JoinTeam: %v", err)
	}
	if joined.ID != team.ID {
		t.Errorf("joined %s, want %s", joined.ID, team.ID)
	}

	if _, err := svc.JoinTeam(ctx, "NOSUCH00"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown code err = %v", err)
	}
}

func TestCreateTeamRejectsBlankName(t *testing.T) {
	e := newEnv()
	svc := NewTeamService(e.store.Teams(), testLogger())
	if _, err := svc.CreateTeam(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestRegisterMemberNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	svc := NewTeamService(e.store.Teams(), testLogger())

	team, err := svc.CreateTeam(ctx, "alpha")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	member, err := svc.RegisterMember(ctx, team.ID, "Ada", " Ada@Example.COM ")
	if err != nil {
		t.Fatalf("RegisterMember: %v", err)
	}
	if member.Email != "ada@example.com" {
		t.Errorf("email = %q", member.Email)
	}

	if _, err := svc.RegisterMember(ctx, team.ID, "", "x@example.com"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := svc.RegisterMember(ctx, "missing", "Bob", "b@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown team err = %v", err)
	}
}
