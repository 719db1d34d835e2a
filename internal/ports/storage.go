package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// WalletStore persiste las wallets seguidas y sus métricas.
type WalletStore interface {
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	GetWallet(ctx context.Context, id string) (domain.Wallet, error)

	// InsertWallet devuelve false si la proxy address ya existía.
	InsertWallet(ctx context.Context, w domain.Wallet) (bool, error)

	SetPaused(ctx context.Context, id string, paused bool) error
	ClearForceFetch(ctx context.Context, id string) error
	TouchWallet(ctx context.Context, id string, at time.Time) error
	SaveMetrics(ctx context.Context, id string, m domain.WalletMetrics) error
}

// SignalStore persiste las señales por wallet.
type SignalStore interface {
	ListSignalsByWallet(ctx context.Context, walletID string) ([]domain.Signal, error)

	// InsertSignal devuelve false si (wallet, market slug, asset) ya existía.
	InsertSignal(ctx context.Context, s domain.Signal) (bool, error)

	// UpdateSignalResolution escribe PnL, outcome, resolved outcome y outcome_at.
	UpdateSignalResolution(ctx context.Context, s domain.Signal) error

	// ListResolvedSignals devuelve las señales WIN/LOSS por created_at ascendente.
	ListResolvedSignals(ctx context.Context, walletID string) ([]domain.Signal, error)
	CountPendingSignals(ctx context.Context, walletID string) (int, error)

	// ListLiveCandidates devuelve las señales Pending con pick de las wallets dadas,
	// excluyendo mercados que ya tienen una señal terminal para esa wallet.
	ListLiveCandidates(ctx context.Context, walletIDs []string) ([]domain.Signal, error)

	// ListPendingWithEvent devuelve las señales Pending con event slug de mercados
	// que la wallet aún no tiene decididos.
	ListPendingWithEvent(ctx context.Context) ([]domain.Signal, error)

	// MarketAlreadySent indica si algún (market, pick) ya fue publicado.
	MarketAlreadySent(ctx context.Context, marketSlug, pick string) (bool, error)

	// MarkSent fija signal_sent_at en las señales aún no enviadas; nunca lo sobreescribe.
	MarkSent(ctx context.Context, marketSlug, pick string, walletIDs []string, at time.Time) (int64, error)

	ListSentResolvedBetween(ctx context.Context, from, to time.Time) ([]domain.Signal, error)
	ListSentPending(ctx context.Context) ([]domain.Signal, error)
}

// LivePickStore gestiona el proyectado wallet_live_picks.
type LivePickStore interface {
	// ReplaceLivePicks trunca y reinserta el proyectado completo en una transacción.
	ReplaceLivePicks(ctx context.Context, picks []domain.LivePick) error
	ListLivePicks(ctx context.Context, outcome domain.Outcome) ([]domain.LivePick, error)
}

// NoteStore lee y escribe notas por slug.
type NoteStore interface {
	// GetNote devuelve found=false si el slug no existe.
	GetNote(ctx context.Context, slug string) (domain.Note, bool, error)
	SaveNote(ctx context.Context, n domain.Note) error
}

// Storage agrupa todas las operaciones del store relacional.
type Storage interface {
	WalletStore
	SignalStore
	LivePickStore
	NoteStore

	Ping(ctx context.Context) error
	Close() error
}
