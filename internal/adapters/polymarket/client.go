package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultDataBase   = "https://data-api.polymarket.com"
	defaultEventsBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los límites documentados.
	// Data API /positions, /trades: 200/10s → 120/10s → 12/s
	dataRatePerSec = 12
	// Gamma /events: 300/10s → 180/10s → 18/s
	eventsRatePerSec = 18

	defaultRetries   = 3
	defaultRetryWait = 500 * time.Millisecond
	defaultTimeout   = 15 * time.Second
)

// ErrNotFound se devuelve cuando la API responde 404. No se reintenta.
var ErrNotFound = errors.New("polymarket: not found")

// Options configura el Client. Los campos vacíos usan los valores de producción.
type Options struct {
	DataBase   string // positions, leaderboard
	TradesBase string // trades; por defecto igual a DataBase
	EventsBase string
	Timeout    time.Duration
	Retries    int
	RetryWait  time.Duration
}

// Client es el HTTP client de las APIs públicas de Polymarket con rate limiting,
// retries y cache de eventos.
type Client struct {
	http          *http.Client
	dataBase      string
	tradesBase    string
	eventsBase    string
	retries       int
	retryWait     time.Duration
	dataLimiter   *rate.Limiter
	eventsLimiter *rate.Limiter
	events        *eventCache
}

// NewClient crea un Client con las opciones dadas.
func NewClient(opts Options) *Client {
	if opts.DataBase == "" {
		opts.DataBase = defaultDataBase
	}
	if opts.TradesBase == "" {
		opts.TradesBase = opts.DataBase
	}
	if opts.EventsBase == "" {
		opts.EventsBase = defaultEventsBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	return &Client{
		http:          &http.Client{Timeout: opts.Timeout},
		dataBase:      opts.DataBase,
		tradesBase:    opts.TradesBase,
		eventsBase:    opts.EventsBase,
		retries:       opts.Retries,
		retryWait:     opts.RetryWait,
		dataLimiter:   rate.NewLimiter(dataRatePerSec, 12),
		eventsLimiter: rate.NewLimiter(eventsRatePerSec, 10),
		events:        newEventCache(),
	}
}

// get hace un GET con rate limiting y retries y devuelve el body crudo.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string) ([]byte, error) {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	})
}

// doWithRetry ejecuta la request con backoff lineal.
// Se reintentan errores de red, 429 y 5xx; 404 devuelve ErrNotFound sin reintentar.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			slog.Warn("rate limited by API", "attempt", attempt+1)
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", c.retries, lastErr)
}

// sleep espera attempt × retryWait respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * c.retryWait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
