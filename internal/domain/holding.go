package domain

// Holding is a team's current share count in one stock. There is at most one
// holding per (team, stock) pair; a holding whose amount reaches exactly zero
// is deleted rather than kept as an empty row.
type Holding struct {
	ID      string
	TeamID  string
	StockID string
	Amount  int64
}
