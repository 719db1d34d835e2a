package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

const walletColumns = `id, proxy_address, display_name, last_checked, paused,
	losing_streak, win_rate, live_picks, force_fetch, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(r rowScanner) (domain.Wallet, error) {
	var (
		w           domain.Wallet
		lastChecked sql.NullTime
	)
	err := r.Scan(&w.ID, &w.ProxyAddress, &w.DisplayName, &lastChecked, &w.Paused,
		&w.LosingStreak, &w.WinRate, &w.LivePicks, &w.ForceFetch, &w.CreatedAt)
	if err != nil {
		return domain.Wallet{}, err
	}
	w.LastChecked = timePtr(lastChecked)
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

// ListWallets devuelve todas las wallets por fecha de alta.
func (s *SQLStorage) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets ORDER BY created_at, proxy_address`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListWallets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListWallets: scan: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWallet devuelve ErrNotFound si el id no existe.
func (s *SQLStorage) GetWallet(ctx context.Context, id string) (domain.Wallet, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+walletColumns+` FROM wallets WHERE id = ?`), id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wallet{}, ErrNotFound
	}
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("storage.GetWallet: %w", err)
	}
	return w, nil
}

// InsertWallet da de alta la wallet si su proxy address no existe todavía.
func (s *SQLStorage) InsertWallet(ctx context.Context, w domain.Wallet) (bool, error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (proxy_address) DO NOTHING`),
		w.ID, w.ProxyAddress, w.DisplayName, nullTime(w.LastChecked), w.Paused,
		w.LosingStreak, w.WinRate, w.LivePicks, w.ForceFetch, w.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("storage.InsertWallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.InsertWallet: rows affected: %w", err)
	}
	return n > 0, nil
}

// SetPaused cambia el flag paused de la wallet.
func (s *SQLStorage) SetPaused(ctx context.Context, id string, paused bool) error {
	return s.execOne(ctx, "storage.SetPaused",
		`UPDATE wallets SET paused = ? WHERE id = ?`, paused, id)
}

// ClearForceFetch consume la ingesta puntual pedida al dar de alta la wallet.
func (s *SQLStorage) ClearForceFetch(ctx context.Context, id string) error {
	return s.execOne(ctx, "storage.ClearForceFetch",
		`UPDATE wallets SET force_fetch = ? WHERE id = ?`, false, id)
}

// TouchWallet registra el instante de la última reconciliación.
func (s *SQLStorage) TouchWallet(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "storage.TouchWallet",
		`UPDATE wallets SET last_checked = ? WHERE id = ?`, at.UTC(), id)
}

// SaveMetrics persiste win rate, racha, live picks, paused y last_checked de una vez.
func (s *SQLStorage) SaveMetrics(ctx context.Context, id string, m domain.WalletMetrics) error {
	return s.execOne(ctx, "storage.SaveMetrics", `
		UPDATE wallets
		SET win_rate = ?, losing_streak = ?, live_picks = ?, paused = ?, last_checked = ?
		WHERE id = ?`,
		m.WinRate, m.LosingStreak, m.LivePicks, m.Paused, m.CheckedAt.UTC(), id)
}

// execOne ejecuta un UPDATE que debe tocar exactamente una fila.
func (s *SQLStorage) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
