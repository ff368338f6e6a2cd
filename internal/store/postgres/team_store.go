package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simbroker/simbroker/internal/domain"
)

// TeamStore implements domain.TeamStore using PostgreSQL.
type TeamStore struct {
	pool *pgxpool.Pool
}

// NewTeamStore creates a TeamStore backed by the given connection pool.
func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

const teamSelectCols = `id, name, code, balance, created_at`

func scanTeamRow(row pgx.Row) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.Balance, &t.CreatedAt)
	if err != nil {
		return domain.Team{}, err
	}
	return t, nil
}

// uniqueViolation is the PostgreSQL error code for unique-constraint breaks.
const uniqueViolation = "23505"

// Create inserts a new team. A join-code collision returns ErrAlreadyExists
// so the caller can regenerate and retry.
func (s *TeamStore) Create(ctx context.Context, team domain.Team) error {
	const query = `
		INSERT INTO teams (id, name, code, balance, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := s.pool.Exec(ctx, query, team.ID, team.Name, team.Code, team.Balance)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create team %s: %w", team.Name, err)
	}
	return nil
}

// GetByID retrieves a team by its ID.
func (s *TeamStore) GetByID(ctx context.Context, id string) (domain.Team, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamSelectCols+` FROM teams WHERE id = $1`, id)

	team, err := scanTeamRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrNotFound
		}
		return domain.Team{}, fmt.Errorf("postgres: get team %s: %w", id, err)
	}
	return team, nil
}

// GetByCode retrieves a team by its join code.
func (s *TeamStore) GetByCode(ctx context.Context, code string) (domain.Team, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamSelectCols+` FROM teams WHERE code = $1`, code)

	team, err := scanTeamRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrNotFound
		}
		return domain.Team{}, fmt.Errorf("postgres: get team by code: %w", err)
	}
	return team, nil
}

// List returns all teams ordered by name.
func (s *TeamStore) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+teamSelectCols+` FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Balance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate team rows: %w", err)
	}
	return teams, nil
}

// AddMember inserts a member into a team. A duplicate email returns
// ErrAlreadyExists.
func (s *TeamStore) AddMember(ctx context.Context, member domain.Member) error {
	const query = `
		INSERT INTO members (id, team_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := s.pool.Exec(ctx, query, member.ID, member.TeamID, member.Name, member.Email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: add member %s: %w", member.Email, err)
	}
	return nil
}

// MemberCounts returns the member count per team ID.
func (s *TeamStore) MemberCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_id, COUNT(*) FROM members GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: member counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var teamID string
		var count int64
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan member count: %w", err)
		}
		counts[teamID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate member counts: %w", err)
	}
	return counts, nil
}

// Compile-time interface check.
var _ domain.TeamStore = (*TeamStore)(nil)
