package domain

import (
	"fmt"
	"time"
)

// Outcome es el estado de resolución de una señal.
type Outcome string

const (
	OutcomePending Outcome = "Pending"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
)

// Terminal devuelve true para WIN y LOSS. Un outcome terminal no vuelve a Pending.
func (o Outcome) Terminal() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// Side es la dirección de la operación en la venue.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normaliza el side de la API; cualquier valor desconocido es BUY.
func ParseSide(s string) Side {
	if Side(s) == SideSell {
		return SideSell
	}
	return SideBuy
}

// Signal es la exposición de una wallet a un outcome de un mercado.
// Asset es la clave de idempotencia: (wallet, market slug, asset) es único.
type Signal struct {
	ID              string
	WalletID        string
	MarketSlug      string
	EventSlug       string
	MarketName      string
	PickedOutcome   string
	OppositeOutcome string
	Side            Side
	Asset           string
	PnL             *float64 // cashPnl, puede faltar
	Outcome         Outcome
	ResolvedOutcome string // vacío mientras Outcome == Pending
	OutcomeAt       *time.Time
	WinRate         float64 // snapshot del win rate de la wallet al crear la señal
	CreatedAt       time.Time
	SentAt          *time.Time
}

// DisplayName devuelve el nombre del mercado o el slug si no hay nombre.
func (s Signal) DisplayName() string {
	if s.MarketName != "" {
		return s.MarketName
	}
	return s.MarketSlug
}

// Direction devuelve el outcome que la señal respalda de hecho.
// Heurística: un SELL cuyo resultado contradice el pick apostaba al lado contrario.
func (s Signal) Direction() string {
	if s.Side == SideSell && s.Outcome.Terminal() &&
		s.ResolvedOutcome != "" && s.ResolvedOutcome != s.PickedOutcome &&
		s.OppositeOutcome != "" {
		return s.OppositeOutcome
	}
	return s.PickedOutcome
}

// OptionLabel sintetiza el nombre de un outcome sin etiqueta a partir de su índice.
func OptionLabel(index int) string {
	return fmt.Sprintf("OPTION_%d", index)
}

// Classify decide el outcome de una posición a partir del flag resolved y del cashPnl.
// cashPnl == 0 cuenta como LOSS: un push no se distingue de una pérdida.
func Classify(resolved bool, cashPnl *float64, picked, opposite string) (Outcome, string) {
	if !resolved || cashPnl == nil {
		return OutcomePending, ""
	}
	if *cashPnl > 0 {
		return OutcomeWin, picked
	}
	if opposite != "" {
		return OutcomeLoss, opposite
	}
	return OutcomeLoss, picked
}

// SameFloat compara dos floats opcionales.
func SameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
