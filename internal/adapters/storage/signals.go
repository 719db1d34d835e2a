package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

const signalColumns = `id, wallet_id, market_slug, event_slug, market_name, picked_outcome,
	opposite_outcome, side, asset, pnl, outcome, resolved_outcome, outcome_at,
	win_rate, created_at, signal_sent_at`

func scanSignal(r rowScanner) (domain.Signal, error) {
	var (
		sig       domain.Signal
		side      string
		outcome   string
		pnl       sql.NullFloat64
		resolved  sql.NullString
		outcomeAt sql.NullTime
		sentAt    sql.NullTime
	)
	err := r.Scan(&sig.ID, &sig.WalletID, &sig.MarketSlug, &sig.EventSlug, &sig.MarketName,
		&sig.PickedOutcome, &sig.OppositeOutcome, &side, &sig.Asset, &pnl, &outcome,
		&resolved, &outcomeAt, &sig.WinRate, &sig.CreatedAt, &sentAt)
	if err != nil {
		return domain.Signal{}, err
	}
	sig.Side = domain.ParseSide(side)
	sig.Outcome = domain.Outcome(outcome)
	sig.PnL = floatPtr(pnl)
	sig.ResolvedOutcome = resolved.String
	sig.OutcomeAt = timePtr(outcomeAt)
	sig.SentAt = timePtr(sentAt)
	sig.CreatedAt = sig.CreatedAt.UTC()
	return sig, nil
}

func (s *SQLStorage) querySignals(ctx context.Context, op, query string, args ...any) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

// ListSignalsByWallet devuelve todas las señales de la wallet por created_at.
func (s *SQLStorage) ListSignalsByWallet(ctx context.Context, walletID string) ([]domain.Signal, error) {
	return s.querySignals(ctx, "storage.ListSignalsByWallet",
		`SELECT `+signalColumns+` FROM signals WHERE wallet_id = ? ORDER BY created_at, id`,
		walletID)
}

// InsertSignal inserta la señal salvo que (wallet, market slug, asset) ya exista.
func (s *SQLStorage) InsertSignal(ctx context.Context, sig domain.Signal) (bool, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	if sig.Outcome == "" {
		sig.Outcome = domain.OutcomePending
	}
	if sig.Side == "" {
		sig.Side = domain.SideBuy
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO signals (`+signalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet_id, market_slug, asset) DO NOTHING`),
		sig.ID, sig.WalletID, sig.MarketSlug, sig.EventSlug, sig.MarketName,
		sig.PickedOutcome, sig.OppositeOutcome, string(sig.Side), sig.Asset,
		nullFloat(sig.PnL), string(sig.Outcome), nullString(sig.ResolvedOutcome),
		nullTime(sig.OutcomeAt), sig.WinRate, sig.CreatedAt.UTC(), nullTime(sig.SentAt),
	)
	if err != nil {
		return false, fmt.Errorf("storage.InsertSignal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.InsertSignal: rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateSignalResolution reescribe el estado de resolución de una señal existente.
func (s *SQLStorage) UpdateSignalResolution(ctx context.Context, sig domain.Signal) error {
	return s.execOne(ctx, "storage.UpdateSignalResolution", `
		UPDATE signals
		SET pnl = ?, outcome = ?, resolved_outcome = ?, outcome_at = ?
		WHERE id = ?`,
		nullFloat(sig.PnL), string(sig.Outcome), nullString(sig.ResolvedOutcome),
		nullTime(sig.OutcomeAt), sig.ID)
}

// ListResolvedSignals devuelve las señales WIN/LOSS de la wallet, las más antiguas primero.
func (s *SQLStorage) ListResolvedSignals(ctx context.Context, walletID string) ([]domain.Signal, error) {
	return s.querySignals(ctx, "storage.ListResolvedSignals", `
		SELECT `+signalColumns+` FROM signals
		WHERE wallet_id = ? AND outcome IN (?, ?)
		ORDER BY created_at, id`,
		walletID, string(domain.OutcomeWin), string(domain.OutcomeLoss))
}

// CountPendingSignals cuenta las señales aún sin resolver de la wallet.
func (s *SQLStorage) CountPendingSignals(ctx context.Context, walletID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM signals WHERE wallet_id = ? AND outcome = ?`),
		walletID, string(domain.OutcomePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CountPendingSignals: %w", err)
	}
	return n, nil
}

// ListLiveCandidates carga las señales Pending con pick de las wallets dadas.
// Si la wallet ya tiene una señal terminal en el mismo mercado, sus hermanas
// Pending no cuentan: el mercado ya está decidido para esa wallet.
func (s *SQLStorage) ListLiveCandidates(ctx context.Context, walletIDs []string) ([]domain.Signal, error) {
	if len(walletIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(walletIDs)+3)
	args = append(args, string(domain.OutcomePending))
	for _, id := range walletIDs {
		args = append(args, id)
	}
	args = append(args, string(domain.OutcomeWin), string(domain.OutcomeLoss))

	return s.querySignals(ctx, "storage.ListLiveCandidates", `
		SELECT `+signalColumns+` FROM signals s
		WHERE s.outcome = ?
		  AND s.picked_outcome <> ''
		  AND s.wallet_id IN (`+placeholders(len(walletIDs))+`)
		  AND NOT EXISTS (
		      SELECT 1 FROM signals t
		      WHERE t.wallet_id = s.wallet_id
		        AND t.market_slug = s.market_slug
		        AND t.outcome IN (?, ?)
		  )
		ORDER BY s.wallet_id, s.created_at, s.id`, args...)
}

// ListPendingWithEvent devuelve las señales Pending que se pueden resolver por evento,
// salvo las de mercados que la wallet ya tiene decididos.
func (s *SQLStorage) ListPendingWithEvent(ctx context.Context) ([]domain.Signal, error) {
	return s.querySignals(ctx, "storage.ListPendingWithEvent", `
		SELECT `+signalColumns+` FROM signals s
		WHERE s.outcome = ? AND s.event_slug <> ''
		  AND NOT EXISTS (
		      SELECT 1 FROM signals t
		      WHERE t.wallet_id = s.wallet_id
		        AND t.market_slug = s.market_slug
		        AND t.outcome IN (?, ?)
		  )
		ORDER BY s.event_slug, s.created_at, s.id`,
		string(domain.OutcomePending), string(domain.OutcomeWin), string(domain.OutcomeLoss))
}

// MarketAlreadySent indica si alguna señal de (market, pick) tiene signal_sent_at.
func (s *SQLStorage) MarketAlreadySent(ctx context.Context, marketSlug, pick string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM signals
		WHERE market_slug = ? AND picked_outcome = ? AND signal_sent_at IS NOT NULL`),
		marketSlug, pick).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.MarketAlreadySent: %w", err)
	}
	return n > 0, nil
}

// MarkSent fija signal_sent_at en las señales del grupo que aún no lo tenían.
func (s *SQLStorage) MarkSent(ctx context.Context, marketSlug, pick string, walletIDs []string, at time.Time) (int64, error) {
	if len(walletIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(walletIDs)+3)
	args = append(args, at.UTC(), marketSlug, pick)
	for _, id := range walletIDs {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE signals SET signal_sent_at = ?
		WHERE market_slug = ? AND picked_outcome = ?
		  AND wallet_id IN (`+placeholders(len(walletIDs))+`)
		  AND signal_sent_at IS NULL`), args...)
	if err != nil {
		return 0, fmt.Errorf("storage.MarkSent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.MarkSent: rows affected: %w", err)
	}
	return n, nil
}

// ListSentResolvedBetween devuelve las señales enviadas que se resolvieron en [from, to).
func (s *SQLStorage) ListSentResolvedBetween(ctx context.Context, from, to time.Time) ([]domain.Signal, error) {
	return s.querySignals(ctx, "storage.ListSentResolvedBetween", `
		SELECT `+signalColumns+` FROM signals
		WHERE signal_sent_at IS NOT NULL
		  AND outcome IN (?, ?)
		  AND outcome_at >= ? AND outcome_at < ?
		ORDER BY market_slug, picked_outcome, outcome_at, id`,
		string(domain.OutcomeWin), string(domain.OutcomeLoss), from.UTC(), to.UTC())
}

// ListSentPending devuelve las señales enviadas que siguen sin resolver.
func (s *SQLStorage) ListSentPending(ctx context.Context) ([]domain.Signal, error) {
	return s.querySignals(ctx, "storage.ListSentPending", `
		SELECT `+signalColumns+` FROM signals
		WHERE signal_sent_at IS NOT NULL AND outcome = ?
		ORDER BY market_slug, picked_outcome, created_at, id`,
		string(domain.OutcomePending))
}
