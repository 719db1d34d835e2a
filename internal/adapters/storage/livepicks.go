package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

const livePickColumns = `wallet_id, market_slug, event_slug, market_name, picked_outcome,
	side, pnl, outcome, resolved_outcome, fetched_at, vote_count, win_rate`

// ReplaceLivePicks trunca wallet_live_picks y reinserta el proyectado.
// Todo ocurre en una transacción: ningún lector ve el proyectado a medias.
func (s *SQLStorage) ReplaceLivePicks(ctx context.Context, picks []domain.LivePick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ReplaceLivePicks: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM wallet_live_picks`); err != nil {
		return fmt.Errorf("storage.ReplaceLivePicks: truncate: %w", err)
	}

	if len(picks) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO wallet_live_picks (`+livePickColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("storage.ReplaceLivePicks: prepare: %w", err)
		}
		defer stmt.Close()

		for _, p := range picks {
			outcome := p.Outcome
			if outcome == "" {
				outcome = domain.OutcomePending
			}
			side := p.Side
			if side == "" {
				side = domain.SideBuy
			}
			_, err := stmt.ExecContext(ctx,
				p.WalletID, p.MarketSlug, p.EventSlug, p.MarketName, p.PickedOutcome,
				string(side), nullFloat(p.PnL), string(outcome), nullString(p.ResolvedOutcome),
				p.FetchedAt.UTC(), p.VoteCount, p.WinRate,
			)
			if err != nil {
				return fmt.Errorf("storage.ReplaceLivePicks: insert %s/%s: %w", p.WalletID, p.MarketSlug, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ReplaceLivePicks: commit: %w", err)
	}
	return nil
}

// ListLivePicks devuelve las filas del proyectado con el outcome dado.
func (s *SQLStorage) ListLivePicks(ctx context.Context, outcome domain.Outcome) ([]domain.LivePick, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+livePickColumns+` FROM wallet_live_picks
		WHERE outcome = ?
		ORDER BY market_slug, picked_outcome, wallet_id`), string(outcome))
	if err != nil {
		return nil, fmt.Errorf("storage.ListLivePicks: query: %w", err)
	}
	defer rows.Close()

	var out []domain.LivePick
	for rows.Next() {
		var (
			p        domain.LivePick
			side     string
			outc     string
			pnl      sql.NullFloat64
			resolved sql.NullString
		)
		if err := rows.Scan(&p.WalletID, &p.MarketSlug, &p.EventSlug, &p.MarketName,
			&p.PickedOutcome, &side, &pnl, &outc, &resolved, &p.FetchedAt,
			&p.VoteCount, &p.WinRate); err != nil {
			return nil, fmt.Errorf("storage.ListLivePicks: scan: %w", err)
		}
		p.Side = domain.ParseSide(side)
		p.Outcome = domain.Outcome(outc)
		p.PnL = floatPtr(pnl)
		p.ResolvedOutcome = resolved.String
		p.FetchedAt = p.FetchedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
