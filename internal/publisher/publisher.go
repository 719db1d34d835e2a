package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Config contiene los parámetros de emisión.
type Config struct {
	MinWallets int
	Ladder     domain.ConfidenceLadder
	ForceSend  bool
	NotesSlug  string
}

// Publisher emite las mayorías del proyectado al chat y a las notas.
type Publisher struct {
	cfg     Config
	picks   ports.LivePickStore
	signals ports.SignalStore
	notes   ports.NoteStore
	chat    ports.ChatPublisher
	now     func() time.Time
}

// New crea un Publisher.
func New(cfg Config, picks ports.LivePickStore, signals ports.SignalStore, notes ports.NoteStore, chat ports.ChatPublisher) *Publisher {
	return &Publisher{
		cfg:     cfg,
		picks:   picks,
		signals: signals,
		notes:   notes,
		chat:    chat,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Groups agrupa las filas Pending por (mercado, pick) en orden determinista.
func Groups(picks []domain.LivePick) []Group {
	index := make(map[[2]string]int)
	var groups []Group
	for _, p := range picks {
		if p.Outcome != domain.OutcomePending {
			continue
		}
		key := [2]string{p.MarketSlug, p.PickedOutcome}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				MarketSlug: p.MarketSlug,
				EventSlug:  p.EventSlug,
				MarketName: p.MarketName,
				Pick:       p.PickedOutcome,
				Side:       p.Side,
			})
		}
		groups[i].Picks = append(groups[i].Picks, p)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].MarketSlug != groups[j].MarketSlug {
			return groups[i].MarketSlug < groups[j].MarketSlug
		}
		return groups[i].Pick < groups[j].Pick
	})
	return groups
}

// Publish emite cada (mercado, pick) con votos suficientes que aún no se envió.
// signal_sent_at solo se fija si chat y notas se escribieron; un fallo se reintenta
// en la siguiente pasada. Devuelve el número de señales emitidas.
func (p *Publisher) Publish(ctx context.Context) (int, error) {
	picks, err := p.picks.ListLivePicks(ctx, domain.OutcomePending)
	if err != nil {
		return 0, fmt.Errorf("publisher.Publish: load live picks: %w", err)
	}

	sent := 0
	for _, g := range Groups(picks) {
		votes := g.Votes()
		if votes < p.cfg.MinWallets {
			continue
		}
		if !p.cfg.ForceSend {
			already, err := p.signals.MarketAlreadySent(ctx, g.MarketSlug, g.Pick)
			if err != nil {
				return sent, fmt.Errorf("publisher.Publish: check sent: %w", err)
			}
			if already {
				continue
			}
		}

		if err := p.emit(ctx, g, votes); err != nil {
			slog.Warn("signal publish failed",
				"market", g.MarketSlug,
				"pick", g.Pick,
				"err", err,
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (p *Publisher) emit(ctx context.Context, g Group, votes int) error {
	tier := p.cfg.Ladder.Tier(votes)
	if tier == 0 {
		tier = 1
	}
	stars := domain.Stars(tier)

	if err := p.chat.Publish(ctx, FormatSignal(g, stars)); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := p.appendNote(ctx, NoteLine(stars, g.Name(), g.Pick, votes), g.Name()); err != nil {
		return fmt.Errorf("notes: %w", err)
	}

	n, err := p.signals.MarkSent(ctx, g.MarketSlug, g.Pick, g.WalletIDs(), p.now())
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	slog.Info("signal published",
		"market", g.MarketSlug,
		"pick", g.Pick,
		"wallets", votes,
		"tier", stars,
		"marked", n,
	)
	return nil
}

func (p *Publisher) appendNote(ctx context.Context, line, marketName string) error {
	note, _, err := p.notes.GetNote(ctx, p.cfg.NotesSlug)
	if err != nil {
		return err
	}
	note.Slug = p.cfg.NotesSlug
	note.Content = UpsertLine(note.Content, marketName, line)
	note.IsPublic = true
	return p.notes.SaveNote(ctx, note)
}
