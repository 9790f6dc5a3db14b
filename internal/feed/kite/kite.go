// Package kite streams last traded prices over the Kite Connect ticker
// websocket and serves them as mark prices.
package kite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
)

var (
	ErrUnknownPair = errors.New("pair has no instrument token")
	ErrNoPrice     = errors.New("no price received yet")
	ErrStalePrice  = errors.New("price is stale")
)

type quote struct {
	price decimal.Decimal
	at    time.Time
}

// Feed keeps the latest price per subscribed pair.
type Feed struct {
	apiKey      string
	accessToken string
	maxAge      time.Duration

	tokens map[string]uint32
	pairs  map[uint32]string

	mu     sync.RWMutex
	quotes map[string]quote

	ticker *kiteticker.Ticker
	now    func() time.Time
}

var _ interfaces.PriceFeed = (*Feed)(nil)

// New builds a feed for the given pair to instrument token map. Prices
// older than maxAge are rejected; zero disables the check.
func New(apiKey, accessToken string, tokens map[string]uint32, maxAge time.Duration) *Feed {
	f := &Feed{
		apiKey:      apiKey,
		accessToken: accessToken,
		maxAge:      maxAge,
		tokens:      make(map[string]uint32, len(tokens)),
		pairs:       make(map[uint32]string, len(tokens)),
		quotes:      make(map[string]quote),
		now:         time.Now,
	}
	for pair, tok := range tokens {
		f.tokens[pair] = tok
		f.pairs[tok] = pair
	}
	return f
}

// Start connects the websocket and subscribes every token in LTP mode on
// each (re)connect. The connection is closed when ctx is done.
func (f *Feed) Start(ctx context.Context) error {
	if f.apiKey == "" || f.accessToken == "" {
		return errors.New("kite feed needs KITE_API_KEY and KITE_ACCESS_TOKEN")
	}
	if len(f.tokens) == 0 {
		return errors.New("kite feed has no instrument tokens")
	}

	f.ticker = kiteticker.New(f.apiKey, f.accessToken)
	f.ticker.OnConnect(f.onConnect)
	f.ticker.OnError(f.onError)
	f.ticker.OnClose(f.onClose)
	f.ticker.OnReconnect(f.onReconnect)
	f.ticker.OnNoReconnect(f.onNoReconnect)
	f.ticker.OnTick(f.onTick)

	go f.ticker.Serve()
	go func() {
		<-ctx.Done()
		f.Stop()
	}()
	return nil
}

func (f *Feed) Stop() {
	if f.ticker != nil {
		f.ticker.Stop()
	}
}

func (f *Feed) MarkPrice(_ context.Context, pair string) (decimal.Decimal, error) {
	if _, ok := f.tokens[pair]; !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", pair, ErrUnknownPair)
	}
	f.mu.RLock()
	q, ok := f.quotes[pair]
	f.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", pair, ErrNoPrice)
	}
	if f.maxAge > 0 {
		if age := f.now().Sub(q.at); age > f.maxAge {
			return decimal.Zero, fmt.Errorf("%s: last tick %s ago: %w", pair, age.Round(time.Second), ErrStalePrice)
		}
	}
	return q.price, nil
}

func (f *Feed) instrumentTokens() []uint32 {
	out := make([]uint32, 0, len(f.pairs))
	for tok := range f.pairs {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *Feed) onConnect() {
	ctx := context.Background()
	tokens := f.instrumentTokens()
	logger.Info(ctx, "WebSocket connected successfully", "tokens", len(tokens))

	if err := f.ticker.Subscribe(tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to subscribe instrument tokens", err)
		return
	}
	if err := f.ticker.SetMode(kiteticker.ModeLTP, tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to set ticker mode", err)
	}
}

func (f *Feed) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error occurred", err)
}

func (f *Feed) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket connection closed",
		"code", code,
		"reason", reason,
	)
}

func (f *Feed) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting",
		"attempt", attempt,
		"delay", delay,
	)
}

func (f *Feed) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed - giving up",
		"attempts", attempt,
	)
}

func (f *Feed) onTick(tick models.Tick) {
	pair, ok := f.pairs[tick.InstrumentToken]
	if !ok || tick.LastPrice <= 0 {
		return
	}
	f.mu.Lock()
	f.quotes[pair] = quote{price: decimal.NewFromFloat(tick.LastPrice), at: f.now()}
	f.mu.Unlock()
}
