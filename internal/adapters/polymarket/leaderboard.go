package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// FetchLeaderboard obtiene una página del leaderboard ordenada por PnL.
func (c *Client) FetchLeaderboard(ctx context.Context, category, period string, limit int) ([]domain.LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("timePeriod", period)
	q.Set("orderBy", "PNL")
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, c.dataLimiter, c.dataBase+"/v1/leaderboard?"+q.Encode())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("data-api.FetchLeaderboard: %s/%s: %w", category, period, err)
	}

	var entries []domain.LeaderboardEntry
	if _, err := parseArray(body, func(v gjson.Result) bool {
		e, ok := mapLeaderboardEntry(v)
		if ok {
			entries = append(entries, e)
		}
		return ok
	}); err != nil {
		return nil, fmt.Errorf("data-api.FetchLeaderboard: %s/%s: %w", category, period, err)
	}
	return entries, nil
}
