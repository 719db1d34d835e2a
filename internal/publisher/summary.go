package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Summarizer construye y envía el resumen diario de señales publicadas.
type Summarizer struct {
	signals ports.SignalStore
	chat    ports.ChatPublisher
	loc     *time.Location
	now     func() time.Time
}

// NewSummarizer crea un Summarizer que calcula "ayer" en la zona loc.
func NewSummarizer(signals ports.SignalStore, chat ports.ChatPublisher, loc *time.Location) *Summarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Summarizer{
		signals: signals,
		chat:    chat,
		loc:     loc,
		now:     time.Now,
	}
}

// Build reúne las señales publicadas resueltas ayer y las publicadas aún abiertas.
func (s *Summarizer) Build(ctx context.Context) (domain.DailySummary, error) {
	local := s.now().In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	yesterday := today.AddDate(0, 0, -1)

	resolved, err := s.signals.ListSentResolvedBetween(ctx, yesterday, today)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("publisher.Summarizer.Build: resolved: %w", err)
	}
	pending, err := s.signals.ListSentPending(ctx)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("publisher.Summarizer.Build: pending: %w", err)
	}

	sum := domain.DailySummary{
		Day:      yesterday,
		Resolved: summarize(resolved),
		Pending:  summarize(pending),
		TotalPnL: decimal.Zero,
	}
	for _, l := range sum.Resolved {
		switch l.Outcome {
		case domain.OutcomeWin:
			sum.Wins++
		case domain.OutcomeLoss:
			sum.Losses++
		}
		sum.TotalPnL = sum.TotalPnL.Add(l.PnL)
	}
	return sum, nil
}

// Send construye el resumen y lo publica en el chat.
func (s *Summarizer) Send(ctx context.Context) error {
	sum, err := s.Build(ctx)
	if err != nil {
		return err
	}
	if err := s.chat.Publish(ctx, FormatSummary(sum)); err != nil {
		return fmt.Errorf("publisher.Summarizer.Send: %w", err)
	}
	slog.Info("daily summary sent",
		"day", sum.Day.Format(time.DateOnly),
		"resolved", len(sum.Resolved),
		"pending", len(sum.Pending),
		"pnl", sum.TotalPnL.StringFixed(2),
	)
	return nil
}

// summarize agrupa señales por (mercado, dirección) sumando el P&L en decimal.
func summarize(sigs []domain.Signal) []domain.SummaryLine {
	index := make(map[[2]string]int)
	wallets := make(map[[2]string]map[string]struct{})
	var lines []domain.SummaryLine
	for _, sig := range sigs {
		pick := sig.Direction()
		key := [2]string{sig.MarketSlug, pick}
		i, ok := index[key]
		if !ok {
			i = len(lines)
			index[key] = i
			wallets[key] = make(map[string]struct{})
			lines = append(lines, domain.SummaryLine{
				MarketSlug:      sig.MarketSlug,
				MarketName:      sig.DisplayName(),
				Pick:            pick,
				Outcome:         sig.Outcome,
				ResolvedOutcome: sig.ResolvedOutcome,
				PnL:             decimal.Zero,
			})
		}
		wallets[key][sig.WalletID] = struct{}{}
		lines[i].Wallets = len(wallets[key])
		if sig.PnL != nil {
			lines[i].PnL = lines[i].PnL.Add(decimal.NewFromFloat(*sig.PnL))
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].MarketName != lines[j].MarketName {
			return lines[i].MarketName < lines[j].MarketName
		}
		return lines[i].Pick < lines[j].Pick
	})
	return lines
}
