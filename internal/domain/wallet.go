package domain

import "time"

// Wallet es una cuenta seguida por el bot.
// ProxyAddress es la identidad que usa la venue; DisplayName es opcional.
type Wallet struct {
	ID           string
	ProxyAddress string
	DisplayName  string
	LastChecked  *time.Time
	Paused       bool
	LosingStreak int
	WinRate      float64 // porcentaje 0-100
	LivePicks    int
	ForceFetch   bool // ignora Paused para una ingesta puntual
	CreatedAt    time.Time
}

// Eligible devuelve true si la wallet puede aportar votos al proyectado de live picks.
func (w Wallet) Eligible(minWinRate float64) bool {
	return !w.Paused && w.WinRate >= minWinRate
}

// Label devuelve el nombre visible de la wallet, o la dirección abreviada.
func (w Wallet) Label() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return ShortAddress(w.ProxyAddress)
}

// WalletMetrics es lo que el evaluador persiste en la wallet tras cada pasada.
type WalletMetrics struct {
	WinRate      float64
	LosingStreak int
	LivePicks    int
	Paused       bool
	CheckedAt    time.Time
}

// ShortAddress abrevia una dirección 0x a 0x1234…abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
