package domain

import "time"

// LivePick es una fila del proyectado derivado: el pick mayoritario vigente de una
// wallet en un evento, anotado con los votos totales de (mercado, outcome).
type LivePick struct {
	WalletID        string
	MarketSlug      string
	EventSlug       string
	MarketName      string
	PickedOutcome   string
	Side            Side
	PnL             *float64
	Outcome         Outcome
	ResolvedOutcome string
	FetchedAt       time.Time
	VoteCount       int
	WinRate         float64
}

// Note es un documento de texto direccionable por slug con el log de señales.
type Note struct {
	Slug     string
	Content  string
	IsPublic bool
}
