// Package feed supplies pair contexts and mark prices to the bot.
package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/types"
)

var ErrPairNotInSnapshot = errors.New("pair not in snapshot")

// snapshotPair is one pair as written by the indicator collector. Fees
// are optional and fall back to the configured rates.
type snapshotPair struct {
	Pair       string                                        `yaml:"pair"`
	MarkPrice  decimal.Decimal                               `yaml:"mark_price"`
	TickSize   decimal.Decimal                               `yaml:"tick_size"`
	MakerFee   *decimal.Decimal                              `yaml:"maker_fee"`
	TakerFee   *decimal.Decimal                              `yaml:"taker_fee"`
	Indicators map[types.Timeframe]types.TimeframeIndicators `yaml:"indicators"`
}

type snapshotFile struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	Pairs       []snapshotPair `yaml:"pairs"`
}

// Snapshot reads pair contexts from a YAML file the indicator collector
// rewrites each cycle. The file is parsed again only when its
// modification time changes.
type Snapshot struct {
	path     string
	pairs    []string
	makerFee decimal.Decimal
	takerFee decimal.Decimal

	mu      sync.Mutex
	modTime time.Time
	cached  []types.PairContext
}

var (
	_ interfaces.Collector = (*Snapshot)(nil)
	_ interfaces.PriceFeed = (*Snapshot)(nil)
)

// NewSnapshot returns a snapshot source. When pairs is non-empty only
// those pairs are collected, in that order.
func NewSnapshot(path string, pairs []string, makerFee, takerFee decimal.Decimal) *Snapshot {
	return &Snapshot{path: path, pairs: pairs, makerFee: makerFee, takerFee: takerFee}
}

func (s *Snapshot) Collect(ctx context.Context) ([]types.PairContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(s.pairs) == 0 {
		return all, nil
	}

	byPair := make(map[string]types.PairContext, len(all))
	for _, pc := range all {
		byPair[pc.Pair] = pc
	}
	out := make([]types.PairContext, 0, len(s.pairs))
	for _, p := range s.pairs {
		if pc, ok := byPair[p]; ok {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (s *Snapshot) MarkPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	all, err := s.load()
	if err != nil {
		return decimal.Zero, err
	}
	for _, pc := range all {
		if pc.Pair == pair {
			return pc.MarkPrice, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%s: %w", pair, ErrPairNotInSnapshot)
}

func (s *Snapshot) load() ([]types.PairContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if s.cached != nil && info.ModTime().Equal(s.modTime) {
		return s.cached, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	pcs, err := Parse(b, s.makerFee, s.takerFee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.cached, s.modTime = pcs, info.ModTime()
	return pcs, nil
}

// Parse decodes a snapshot document.
func Parse(b []byte, makerFee, takerFee decimal.Decimal) ([]types.PairContext, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	out := make([]types.PairContext, 0, len(f.Pairs))
	for i, sp := range f.Pairs {
		if sp.Pair == "" {
			return nil, fmt.Errorf("snapshot entry %d has no pair", i)
		}
		pc := types.PairContext{
			Pair:       sp.Pair,
			MarkPrice:  sp.MarkPrice,
			TickSize:   sp.TickSize,
			MakerFee:   makerFee,
			TakerFee:   takerFee,
			Indicators: sp.Indicators,
		}
		if sp.MakerFee != nil {
			pc.MakerFee = *sp.MakerFee
		}
		if sp.TakerFee != nil {
			pc.TakerFee = *sp.TakerFee
		}
		for tf, ind := range pc.Indicators {
			if ind.Timeframe == "" {
				ind.Timeframe = tf
				pc.Indicators[tf] = ind
			}
		}
		out = append(out, pc)
	}
	return out, nil
}
