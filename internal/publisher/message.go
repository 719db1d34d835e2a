package publisher

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

const eventURL = "https://polymarket.com/event/"

// markdownEscaper escapa los caracteres especiales del Markdown legacy de Telegram.
var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// Group es un (mercado, pick) del proyectado con sus filas.
type Group struct {
	MarketSlug string
	EventSlug  string
	MarketName string
	Pick       string
	Side       domain.Side
	Picks      []domain.LivePick
}

// Votes devuelve el número de wallets distintas del grupo.
func (g Group) Votes() int {
	seen := make(map[string]struct{}, len(g.Picks))
	for _, p := range g.Picks {
		seen[p.WalletID] = struct{}{}
	}
	return len(seen)
}

// WalletIDs devuelve los ids de las wallets del grupo.
func (g Group) WalletIDs() []string {
	ids := make([]string, 0, len(g.Picks))
	seen := make(map[string]struct{}, len(g.Picks))
	for _, p := range g.Picks {
		if _, ok := seen[p.WalletID]; ok {
			continue
		}
		seen[p.WalletID] = struct{}{}
		ids = append(ids, p.WalletID)
	}
	return ids
}

// Name devuelve el nombre del mercado o su slug.
func (g Group) Name() string {
	if g.MarketName != "" {
		return g.MarketName
	}
	return g.MarketSlug
}

// FormatSignal construye el mensaje de chat de una señal de consenso.
func FormatSignal(g Group, stars string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *COPY SIGNAL*\n\n", stars)
	fmt.Fprintf(&sb, "*%s*\n", escape(g.Name()))
	fmt.Fprintf(&sb, "Pick: *%s* (%s)\n", escape(g.Pick), g.Side)
	fmt.Fprintf(&sb, "Wallets: %d\n", g.Votes())

	var wr float64
	for _, p := range g.Picks {
		wr += p.WinRate
	}
	if len(g.Picks) > 0 {
		fmt.Fprintf(&sb, "Avg win rate: %.1f%%\n", wr/float64(len(g.Picks)))
	}
	if g.EventSlug != "" {
		fmt.Fprintf(&sb, "\n%s%s", eventURL, g.EventSlug)
	}
	return sb.String()
}

// FormatSummary construye el mensaje del resumen diario.
func FormatSummary(s domain.DailySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*DAILY SUMMARY* %s\n\n", s.Day.Format(time.DateOnly))

	if len(s.Resolved) == 0 {
		sb.WriteString("No signals resolved yesterday.\n")
	} else {
		fmt.Fprintf(&sb, "Resolved: %d (%d W / %d L, %.0f%% hit)\n", len(s.Resolved), s.Wins, s.Losses, s.HitRate())
		fmt.Fprintf(&sb, "P&L: $%s\n\n", s.TotalPnL.StringFixed(2))
		for _, l := range s.Resolved {
			mark := "✅"
			if l.Outcome == domain.OutcomeLoss {
				mark = "❌"
			}
			fmt.Fprintf(&sb, "%s %s → %s · %d wallets · $%s\n",
				mark, escape(l.MarketName), escape(l.Pick), l.Wallets, l.PnL.StringFixed(2))
		}
	}

	if len(s.Pending) > 0 {
		fmt.Fprintf(&sb, "\nStill open: %d\n", len(s.Pending))
		for _, l := range s.Pending {
			fmt.Fprintf(&sb, "⏳ %s → %s · %d wallets\n", escape(l.MarketName), escape(l.Pick), l.Wallets)
		}
	}
	return sb.String()
}
