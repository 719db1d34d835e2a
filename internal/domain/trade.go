package domain

import "time"

// Trade es un trade taker de una wallet en la Data API.
type Trade struct {
	Asset        string
	ConditionID  string
	Slug         string
	EventSlug    string
	Title        string
	Side         string
	Outcome      string
	OutcomeIndex *int
	Timestamp    int64 // unix segundos
}

// MarketSlug devuelve slug ∨ conditionId.
func (t Trade) MarketSlug() string {
	if t.Slug != "" {
		return t.Slug
	}
	return t.ConditionID
}

// EventKey devuelve el slug del evento, o el del mercado si falta.
func (t Trade) EventKey() string {
	if t.EventSlug != "" {
		return t.EventSlug
	}
	return t.MarketSlug()
}

// Pick devuelve el outcome del trade o OPTION_<index>.
func (t Trade) Pick() string {
	return pickOf(t.Outcome, t.OutcomeIndex)
}

// ExecutedAt devuelve el momento del trade o fallback si falta.
func (t Trade) ExecutedAt(fallback time.Time) time.Time {
	return unixOr(t.Timestamp, fallback)
}

// LeaderboardEntry es una fila del leaderboard de PnL.
type LeaderboardEntry struct {
	ProxyWallet string
	UserName    string
	PnL         float64
	Volume      float64
}

// Qualifies aplica el filtro de ingesta: pnl >= pnlMin y vol < volMult × pnl.
func (e LeaderboardEntry) Qualifies(pnlMin, volMult float64) bool {
	return e.ProxyWallet != "" && e.PnL >= pnlMin && e.Volume < volMult*e.PnL
}
