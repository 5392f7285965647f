package indicator

import (
	"sentinel/internal/market"
)

// Enricher fills indicator fields a snapshot did not carry, reusing cached
// results while the newest bar is unchanged.
type Enricher struct {
	cfg   Settings
	cache *Cache
}

func NewEnricher(cfg Settings, cache *Cache) *Enricher {
	return &Enricher{cfg: cfg.normalized(), cache: cache}
}

// Enrich never overwrites values supplied by the caller.
func (e *Enricher) Enrich(snap market.Snapshot) market.Snapshot {
	if len(snap.Candles) == 0 {
		return snap
	}
	if len(snap.MAFast) > 0 && len(snap.MASlow) > 0 && len(snap.MATrend) > 0 && snap.RSI != nil && snap.ATR != nil {
		return snap
	}
	lastBar := snap.Candles[len(snap.Candles)-1].Time
	vals, ok := Values{}, false
	if e.cache != nil {
		vals, ok = e.cache.Get(snap.Symbol, snap.Timeframe, lastBar)
	}
	if !ok {
		vals = Compute(snap.Candles, e.cfg)
		if e.cache != nil {
			e.cache.Put(snap.Symbol, snap.Timeframe, lastBar, vals)
		}
	}
	if len(snap.MAFast) == 0 {
		snap.MAFast = vals.MAFast
	}
	if len(snap.MASlow) == 0 {
		snap.MASlow = vals.MASlow
	}
	if len(snap.MATrend) == 0 {
		snap.MATrend = vals.MATrend
	}
	if snap.RSI == nil {
		snap.RSI = vals.RSI
	}
	if snap.ATR == nil {
		snap.ATR = vals.ATR
	}
	return snap
}
