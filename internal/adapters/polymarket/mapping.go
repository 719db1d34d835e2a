package polymarket

import (
	"errors"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// errMalformedBody indica que la respuesta no es un array JSON.
var errMalformedBody = errors.New("malformed response body")

// parseArray recorre un array JSON y llama a fn con cada elemento objeto.
// Los elementos que no son objeto o que fn rechaza se cuentan como skipped.
func parseArray(body []byte, fn func(v gjson.Result) bool) (skipped int, err error) {
	if !gjson.ValidBytes(body) {
		return 0, errMalformedBody
	}
	root := gjson.ParseBytes(body)
	if root.IsObject() && root.Get("data").IsArray() {
		root = root.Get("data")
	}
	if !root.IsArray() {
		return 0, errMalformedBody
	}
	root.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() || !fn(v) {
			skipped++
		}
		return true
	})
	return skipped, nil
}

// mapPosition convierte un registro de /positions. Devuelve false si falta asset.
func mapPosition(v gjson.Result) (domain.Position, bool) {
	p := domain.Position{
		Asset:           v.Get("asset").String(),
		Slug:            v.Get("slug").String(),
		ConditionID:     v.Get("conditionId").String(),
		EventSlug:       v.Get("eventSlug").String(),
		Title:           v.Get("title").String(),
		Outcome:         v.Get("outcome").String(),
		OutcomeIndex:    optInt(v.Get("outcomeIndex")),
		OppositeOutcome: v.Get("oppositeOutcome").String(),
		Side:            v.Get("side").String(),
		CashPnl:         optFloat(v.Get("cashPnl")),
		Timestamp:       v.Get("timestamp").Int(),
	}
	if r := v.Get("resolved"); r.Exists() {
		p.Resolved = r.Bool()
	} else {
		p.Resolved = v.Get("redeemable").Bool()
	}
	if p.Asset == "" || p.MarketSlug() == "" {
		return domain.Position{}, false
	}
	return p, true
}

// mapTrade convierte un registro de /trades. Devuelve false si falta asset.
func mapTrade(v gjson.Result) (domain.Trade, bool) {
	t := domain.Trade{
		Asset:        v.Get("asset").String(),
		ConditionID:  v.Get("conditionId").String(),
		Slug:         v.Get("slug").String(),
		EventSlug:    v.Get("eventSlug").String(),
		Title:        v.Get("title").String(),
		Side:         v.Get("side").String(),
		Outcome:      v.Get("outcome").String(),
		OutcomeIndex: optInt(v.Get("outcomeIndex")),
		Timestamp:    v.Get("timestamp").Int(),
	}
	if t.Asset == "" || t.MarketSlug() == "" {
		return domain.Trade{}, false
	}
	return t, true
}

// mapLeaderboardEntry convierte una fila de /v1/leaderboard.
func mapLeaderboardEntry(v gjson.Result) (domain.LeaderboardEntry, bool) {
	e := domain.LeaderboardEntry{
		ProxyWallet: v.Get("proxyWallet").String(),
		UserName:    v.Get("userName").String(),
		PnL:         v.Get("pnl").Float(),
		Volume:      v.Get("vol").Float(),
	}
	return e, e.ProxyWallet != ""
}

// mapEvent convierte la respuesta de /events. Gamma devuelve outcomes y
// outcomePrices como strings JSON, así que se aceptan ambas formas.
func mapEvent(v gjson.Result) domain.Event {
	ev := domain.Event{
		Slug:   v.Get("slug").String(),
		Title:  v.Get("title").String(),
		Closed: v.Get("closed").Bool(),
	}
	v.Get("markets").ForEach(func(_, m gjson.Result) bool {
		em := domain.EventMarket{
			Slug:        m.Get("slug").String(),
			ConditionID: m.Get("conditionId").String(),
			Question:    m.Get("question").String(),
			Closed:      m.Get("closed").Bool(),
		}
		embedded(m.Get("outcomes")).ForEach(func(_, o gjson.Result) bool {
			em.Outcomes = append(em.Outcomes, o.String())
			return true
		})
		embedded(m.Get("outcomePrices")).ForEach(func(_, p gjson.Result) bool {
			f, err := strconv.ParseFloat(p.String(), 64)
			if err != nil {
				f = 0
			}
			em.OutcomePrices = append(em.OutcomePrices, f)
			return true
		})
		ev.Markets = append(ev.Markets, em)
		return true
	})
	return ev
}

// embedded desempaqueta un array codificado como string JSON.
func embedded(v gjson.Result) gjson.Result {
	if v.Type == gjson.String {
		return gjson.Parse(v.String())
	}
	return v
}

func optFloat(v gjson.Result) *float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.Type == gjson.String {
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	f := v.Float()
	return &f
}

func optInt(v gjson.Result) *int {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	i := int(v.Int())
	return &i
}
