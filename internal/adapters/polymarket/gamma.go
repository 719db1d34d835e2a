package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// eventCache guarda los eventos durante toda la vida del proceso.
// Las entradas nunca se invalidan; un 404 se cachea como nil.
type eventCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Event
	group   singleflight.Group
}

func newEventCache() *eventCache {
	return &eventCache{entries: make(map[string]*domain.Event)}
}

func (c *eventCache) lookup(slug string) (*domain.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.entries[slug]
	return ev, ok
}

func (c *eventCache) store(slug string, ev *domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[slug] = ev
}

// FetchEvent devuelve el evento por slug, usando la cache si ya se pidió.
// Devuelve (nil, nil) si el evento no existe.
func (c *Client) FetchEvent(ctx context.Context, slug string) (*domain.Event, error) {
	if ev, ok := c.events.lookup(slug); ok {
		return ev, nil
	}

	v, err, _ := c.events.group.Do(slug, func() (any, error) {
		if ev, ok := c.events.lookup(slug); ok {
			return ev, nil
		}

		body, err := c.get(ctx, c.eventsLimiter, c.eventsBase+"/events/"+url.PathEscape(slug))
		if errors.Is(err, ErrNotFound) {
			slog.Info("event not found, caching miss", "event", slug)
			c.events.store(slug, nil)
			return (*domain.Event)(nil), nil
		}
		if err != nil {
			return nil, err
		}

		root := gjson.ParseBytes(body)
		if root.IsArray() {
			if !root.Get("0").Exists() {
				c.events.store(slug, nil)
				return (*domain.Event)(nil), nil
			}
			root = root.Get("0")
		}
		if !root.IsObject() {
			return nil, errMalformedBody
		}
		ev := mapEvent(root)
		c.events.store(slug, &ev)
		return &ev, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchEvent %q: %w", slug, err)
	}
	return v.(*domain.Event), nil
}
