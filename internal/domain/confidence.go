package domain

import "strings"

// ConfidenceLadder contiene los cortes de votos para ★ … ★★★★★ en orden creciente.
type ConfidenceLadder [5]int

// DefaultLadder devuelve 2→★, 5→★★, 10→★★★, 20→★★★★, 50→★★★★★.
func DefaultLadder() ConfidenceLadder {
	return ConfidenceLadder{2, 5, 10, 20, 50}
}

// Tier devuelve el tier más alto cuyo corte es <= count, o 0 si no llega al primero.
func (l ConfidenceLadder) Tier(count int) int {
	tier := 0
	for i, cut := range l {
		if cut > 0 && count >= cut {
			tier = i + 1
		}
	}
	return tier
}

// Stars devuelve la etiqueta de estrellas del tier.
func Stars(tier int) string {
	if tier <= 0 {
		return ""
	}
	return strings.Repeat("★", tier)
}
