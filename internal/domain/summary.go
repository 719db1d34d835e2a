package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryLine agrupa las señales publicadas de un (mercado, pick).
type SummaryLine struct {
	MarketSlug      string
	MarketName      string
	Pick            string
	Outcome         Outcome
	ResolvedOutcome string
	Wallets         int
	PnL             decimal.Decimal
}

// DailySummary es el resumen del job diario.
type DailySummary struct {
	Day      time.Time
	Resolved []SummaryLine
	Pending  []SummaryLine
	Wins     int
	Losses   int
	TotalPnL decimal.Decimal
}

// HitRate devuelve el porcentaje de líneas resueltas ganadoras.
func (s DailySummary) HitRate() float64 {
	total := s.Wins + s.Losses
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total) * 100
}
