package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simbroker/simbroker/internal/domain"
)

// codeRetries bounds join-code regeneration on collision. With 8 characters
// of UUID entropy a single retry is already rare.
const codeRetries = 5

// TeamService manages team creation, joining, and membership.
type TeamService struct {
	teams  domain.TeamStore
	logger *slog.Logger
}

// NewTeamService creates a TeamService.
func NewTeamService(teams domain.TeamStore, logger *slog.Logger) *TeamService {
	return &TeamService{
		teams:  teams,
		logger: logger.With(slog.String("component", "team_service")),
	}
}

// CreateTeam creates a team with the starting balance and a fresh join code,
// retrying code generation on the rare collision.
func (s *TeamService) CreateTeam(ctx context.Context, name string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Team{}, fmt.Errorf("service: create team: name must not be empty")
	}

	var lastErr error
	for i := 0; i < codeRetries; i++ {
		team := domain.Team{
			ID:        uuid.New().String(),
			Name:      name,
			Code:      domain.NewJoinCode(),
			Balance:   domain.StartingBalance,
			CreatedAt: time.Now().UTC(),
		}
		err := s.teams.Create(ctx, team)
		if err == nil {
			s.logger.InfoContext(ctx, "team created",
				slog.String("team_id", team.ID),
				slog.String("name", team.Name),
			)
			return team, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Team{}, fmt.Errorf("service: create team: %w", err)
		}
		lastErr = err
	}
	return domain.Team{}, fmt.Errorf("service: create team: join code collisions exhausted: %w", lastErr)
}

// JoinTeam resolves a join code to its team.
func (s *TeamService) JoinTeam(ctx context.Context, code string) (domain.Team, error) {
	team, err := s.teams.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return domain.Team{}, fmt.Errorf("service: join team: %w", err)
	}
	return team, nil
}

// RegisterMember adds a member to a team. The member makes the team eligible
// for the ranking.
func (s *TeamService) RegisterMember(ctx context.Context, teamID, name, email string) (domain.Member, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return domain.Member{}, fmt.Errorf("service: register member: name and email must not be empty")
	}

	member := domain.Member{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return domain.Member{}, fmt.Errorf("service: register member: %w", err)
	}

	s.logger.InfoContext(ctx, "member registered",
		slog.String("team_id", teamID),
		slog.String("member_id", member.ID),
	)
	return member, nil
}
