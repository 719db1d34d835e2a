package domain

import "time"

// Event agrupa mercados relacionados en la venue. Se cachea por slug.
type Event struct {
	Slug    string
	Title   string
	Closed  bool
	Markets []EventMarket
}

// EventMarket es un mercado dentro de un evento.
type EventMarket struct {
	Slug          string
	ConditionID   string
	Question      string
	Outcomes      []string
	OutcomePrices []float64
	Closed        bool
}

// winnerPrice es el precio a partir del cual un outcome se da por ganador.
const winnerPrice = 0.99

// Market busca un mercado del evento por slug o por condition id.
func (e Event) Market(key string) (EventMarket, bool) {
	for _, m := range e.Markets {
		if m.Slug == key || (m.ConditionID != "" && m.ConditionID == key) {
			return m, true
		}
	}
	return EventMarket{}, false
}

// Winner devuelve el outcome ganador de un mercado cerrado.
func (m EventMarket) Winner() (string, bool) {
	if !m.Closed {
		return "", false
	}
	for i, p := range m.OutcomePrices {
		if p >= winnerPrice && i < len(m.Outcomes) {
			return m.Outcomes[i], true
		}
	}
	return "", false
}

// Position es una posición de una wallet tal como la devuelve la Data API.
type Position struct {
	Asset           string
	Slug            string
	ConditionID     string
	EventSlug       string
	Title           string
	Outcome         string
	OutcomeIndex    *int
	OppositeOutcome string
	Side            string
	CashPnl         *float64
	Resolved        bool
	Timestamp       int64 // unix segundos, 0 si falta
}

// MarketSlug devuelve slug ∨ conditionId.
func (p Position) MarketSlug() string {
	if p.Slug != "" {
		return p.Slug
	}
	return p.ConditionID
}

// EventKey devuelve el slug del evento, o el del mercado si la API no lo trae.
func (p Position) EventKey() string {
	if p.EventSlug != "" {
		return p.EventSlug
	}
	return p.MarketSlug()
}

// Pick devuelve el outcome de la posición, o OPTION_<index> si no tiene nombre.
func (p Position) Pick() string {
	return pickOf(p.Outcome, p.OutcomeIndex)
}

// OpenedAt devuelve el timestamp de la posición o fallback si falta.
func (p Position) OpenedAt(fallback time.Time) time.Time {
	return unixOr(p.Timestamp, fallback)
}

func pickOf(outcome string, index *int) string {
	if outcome != "" {
		return outcome
	}
	if index != nil {
		return OptionLabel(*index)
	}
	return ""
}

func unixOr(ts int64, fallback time.Time) time.Time {
	if ts <= 0 {
		return fallback
	}
	return time.Unix(ts, 0).UTC()
}
