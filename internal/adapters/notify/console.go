package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// Console implementa ports.ChatPublisher escribiendo a un io.Writer.
// Es el fallback cuando no hay token de Telegram configurado.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un publicador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un publicador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Publish imprime el mensaje con un separador y la hora local.
func (c *Console) Publish(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "──── [%s] ────\n", time.Now().Format("15:04:05"))
	_, err := fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))
	return err
}

// PrintWallets imprime la tabla de métricas de las wallets seguidas.
func PrintWallets(w io.Writer, wallets []domain.Wallet) {
	if len(wallets) == 0 {
		fmt.Fprintln(w, "No wallets tracked.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Wallet", "Win%", "Streak", "Live", "Status", "Last checked")

	active := 0
	for i, wl := range wallets {
		status := "active"
		switch {
		case wl.Paused:
			status = "paused"
		default:
			active++
		}
		if wl.ForceFetch {
			status += "+seed"
		}

		checked := "never"
		if wl.LastChecked != nil {
			checked = wl.LastChecked.Local().Format("2006-01-02 15:04")
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			wl.Label(),
			fmt.Sprintf("%.1f", wl.WinRate),
			fmt.Sprintf("%d", wl.LosingStreak),
			fmt.Sprintf("%d", wl.LivePicks),
			status,
			checked,
		)
	}

	table.Render()
	fmt.Fprintf(w, "%d wallets, %d active, %d paused\n", len(wallets), active, len(wallets)-active)
}
