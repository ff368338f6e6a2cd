package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartingBalance is the cash every team begins with.
var StartingBalance = decimal.New(100000, 0)

// Team is the trading unit: a shared cash balance plus its holdings. Code is
// the unique join code members use to enter the team.
type Team struct {
	ID        string
	Name      string
	Code      string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Member is one player belonging to a team. Teams without members are not
// eligible for the ranking.
type Member struct {
	ID        string
	TeamID    string
	Name      string
	Email     string
	CreatedAt time.Time
}

// joinCodeLen is the length of generated team join codes.
const joinCodeLen = 8

// NewJoinCode generates an 8-character uppercase join code from UUID entropy.
// Uniqueness is enforced by the team store; callers retry on collision.
func NewJoinCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:joinCodeLen])
}

// SentinelTeamNames are placeholder or administrative teams that never appear
// in the ranking.
var SentinelTeamNames = map[string]bool{
	"default": true,
	"admin":   true,
}

// RankingEligible reports whether a team with the given member count takes
// part in the ranking.
func (t Team) RankingEligible(memberCount int64) bool {
	return memberCount > 0 && !SentinelTeamNames[t.Name]
}
