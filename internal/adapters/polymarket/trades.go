package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

const (
	tradesLimit       = 100
	positionsPageSize = 100
	positionsMaxPages = 50
)

// FetchTrades obtiene los trades taker recientes de una wallet.
func (c *Client) FetchTrades(ctx context.Context, proxy string) ([]domain.Trade, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(tradesLimit))
	q.Set("takerOnly", "true")
	q.Set("user", proxy)

	body, err := c.get(ctx, c.dataLimiter, c.tradesBase+"/trades?"+q.Encode())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("data-api.FetchTrades: %w", err)
	}

	var trades []domain.Trade
	skipped, err := parseArray(body, func(v gjson.Result) bool {
		t, ok := mapTrade(v)
		if ok {
			trades = append(trades, t)
		}
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("data-api.FetchTrades: %w", err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed trade records", "wallet", domain.ShortAddress(proxy), "skipped", skipped)
	}
	return trades, nil
}

// FetchPositions obtiene todas las posiciones de una wallet en páginas de 100.
// Para en la primera página vacía o incompleta.
func (c *Client) FetchPositions(ctx context.Context, proxy string) ([]domain.Position, error) {
	var all []domain.Position
	skippedTotal := 0

	for page := 0; page < positionsMaxPages; page++ {
		q := url.Values{}
		q.Set("user", proxy)
		q.Set("limit", strconv.Itoa(positionsPageSize))
		q.Set("offset", strconv.Itoa(page*positionsPageSize))
		q.Set("sizeThreshold", "1")
		q.Set("sortBy", "CURRENT")
		q.Set("sortDirection", "DESC")

		body, err := c.get(ctx, c.dataLimiter, c.dataBase+"/positions?"+q.Encode())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("data-api.FetchPositions: page %d: %w", page, err)
		}

		n := 0
		skipped, err := parseArray(body, func(v gjson.Result) bool {
			n++
			p, ok := mapPosition(v)
			if ok {
				all = append(all, p)
			}
			return ok
		})
		if err != nil {
			return nil, fmt.Errorf("data-api.FetchPositions: page %d: %w", page, err)
		}
		skippedTotal += skipped

		slog.Debug("fetched positions page",
			"wallet", domain.ShortAddress(proxy),
			"page", page,
			"count", n,
			"total", len(all),
		)

		if n < positionsPageSize {
			break
		}
	}

	if skippedTotal > 0 {
		slog.Warn("skipped malformed position records", "wallet", domain.ShortAddress(proxy), "skipped", skippedTotal)
	}
	return all, nil
}
