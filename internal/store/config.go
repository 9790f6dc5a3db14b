package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"nado-trading-bot/internal/types"
)

// Percent is a fraction that may be written either as a plain number
// (0.01) or as a percent string ("1%").
type Percent float64

func (p *Percent) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParsePercent(node.Value)
	if err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}

func (p Percent) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(p))
}

// ParsePercent converts "1%" to 0.01 and "0.01" to 0.01.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0, fmt.Errorf("parse percent %q: %w", s, err)
		}
		return v / 100, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse percent %q: %w", s, err)
	}
	return v, nil
}

type Config struct {
	Mode    string `yaml:"mode"`
	Trading struct {
		Certainty        int      `yaml:"certainty"`
		VolumeOrder      float64  `yaml:"volume_order"`
		MaxPercentLoss   Percent  `yaml:"max_percent_loss"`
		MaxPercentProfit Percent  `yaml:"max_percent_profit"`
		UniqueTrend      string   `yaml:"unique_trend"`
		MaxPositions     int      `yaml:"max_positions"`
		Pairs            []string `yaml:"pairs"`
	} `yaml:"trading"`
	Fees struct {
		Maker Percent `yaml:"maker"`
		Taker Percent `yaml:"taker"`
	} `yaml:"fees"`
	Runtime struct {
		EvaluationSeconds int `yaml:"evaluation_seconds"`
		MonitorSeconds    int `yaml:"monitor_seconds"`
		Concurrency       int `yaml:"concurrency"`
	} `yaml:"runtime"`
	Feed struct {
		Source       string            `yaml:"source"`
		SnapshotPath string            `yaml:"snapshot_path"`
		KiteTokens   map[string]uint32 `yaml:"kite_tokens"`
	} `yaml:"feed"`
	Journal struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"journal"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// UniqueTrend returns the side the configuration restricts trading to,
// or SideNone when both sides are allowed.
func (c *Config) UniqueTrend() types.Side {
	switch strings.ToUpper(strings.TrimSpace(c.Trading.UniqueTrend)) {
	case "LONG":
		return types.SideLong
	case "SHORT":
		return types.SideShort
	default:
		return types.SideNone
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return invalid("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	t := c.Trading
	if t.Certainty < 0 || t.Certainty > 100 {
		return invalid("trading.certainty must be between 0-100, got %d", t.Certainty)
	}
	if t.VolumeOrder <= 0 {
		return invalid("trading.volume_order must be positive, got %.4f", t.VolumeOrder)
	}
	if t.MaxPercentLoss <= 0 || t.MaxPercentLoss >= 1 {
		return invalid("trading.max_percent_loss must be a fraction in (0,1), got %.4f", float64(t.MaxPercentLoss))
	}
	if t.MaxPercentProfit <= 0 || t.MaxPercentProfit >= 1 {
		return invalid("trading.max_percent_profit must be a fraction in (0,1), got %.4f", float64(t.MaxPercentProfit))
	}
	switch strings.ToUpper(strings.TrimSpace(t.UniqueTrend)) {
	case "", "NONE", "LONG", "SHORT":
	default:
		return invalid("trading.unique_trend must be 'none', 'long' or 'short', got '%s'", t.UniqueTrend)
	}
	if t.MaxPositions < 1 {
		return invalid("trading.max_positions must be at least 1, got %d", t.MaxPositions)
	}
	if c.Fees.Maker < 0 || c.Fees.Taker < 0 {
		return invalid("fees must not be negative (maker=%.6f taker=%.6f)", float64(c.Fees.Maker), float64(c.Fees.Taker))
	}
	if c.Runtime.EvaluationSeconds <= 0 || c.Runtime.MonitorSeconds <= 0 {
		return invalid("runtime intervals must be positive")
	}
	switch c.Feed.Source {
	case "SNAPSHOT", "KITE":
	default:
		return invalid("feed.source must be 'SNAPSHOT' or 'KITE', got '%s'", c.Feed.Source)
	}
	if c.Runtime.Concurrency < 1 {
		return invalid("runtime.concurrency must be at least 1, got %d", c.Runtime.Concurrency)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Default returns a config with the original bot's defaults.
func Default() *Config {
	var c Config
	c.Mode = "DRY_RUN"
	c.Trading.Certainty = 70
	c.Trading.VolumeOrder = 100
	c.Trading.MaxPercentLoss = 0.01
	c.Trading.MaxPercentProfit = 0.02
	c.Trading.MaxPositions = 3
	c.Fees.Maker = 0.001
	c.Fees.Taker = 0.001
	c.Runtime.EvaluationSeconds = 10
	c.Runtime.MonitorSeconds = 15
	c.Runtime.Concurrency = 4
	c.Feed.Source = "SNAPSHOT"
	c.Feed.SnapshotPath = "snapshot.yaml"
	c.Journal.Dir = "logs"
	c.Journal.RetentionDays = 30
	return &c
}

func LoadConfig(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides file values with the upper-case keys the original
// bot read from its environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	intVar := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid("%s: %v", key, err)
		}
		*dst = n
		return nil
	}
	pctVar := func(key string, dst *Percent) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := ParsePercent(v)
		if err != nil {
			return invalid("%s: %v", key, err)
		}
		*dst = Percent(f)
		return nil
	}

	if v, ok := lookup("MODE"); ok && v != "" {
		c.Mode = strings.ToUpper(v)
	}
	if err := intVar("CERTAINTY", &c.Trading.Certainty); err != nil {
		return err
	}
	if v, ok := lookup("VOLUME_ORDER"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return invalid("VOLUME_ORDER: %v", err)
		}
		c.Trading.VolumeOrder = f
	}
	if err := pctVar("MAX_PERCENT_LOSS", &c.Trading.MaxPercentLoss); err != nil {
		return err
	}
	if err := pctVar("MAX_PERCENT_PROFIT", &c.Trading.MaxPercentProfit); err != nil {
		return err
	}
	if v, ok := lookup("UNIQUE_TREND"); ok {
		c.Trading.UniqueTrend = v
	}
	if err := pctVar("MAKER_FEE", &c.Fees.Maker); err != nil {
		return err
	}
	if err := pctVar("TAKER_FEE", &c.Fees.Taker); err != nil {
		return err
	}
	if err := intVar("MAX_POSITIONS", &c.Trading.MaxPositions); err != nil {
		return err
	}
	if v, ok := lookup("TRADING_PAIRS"); ok && v != "" {
		c.Trading.Pairs = c.Trading.Pairs[:0]
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Trading.Pairs = append(c.Trading.Pairs, p)
			}
		}
	}
	if v, ok := lookup("FEED_SOURCE"); ok && v != "" {
		c.Feed.Source = strings.ToUpper(v)
	}
	if v, ok := lookup("SNAPSHOT_PATH"); ok && v != "" {
		c.Feed.SnapshotPath = v
	}
	if err := intVar("TRADER_LOG_RETENTION_DAYS", &c.Journal.RetentionDays); err != nil {
		return err
	}
	if v, ok := lookup("TRADER_LOG_DIR"); ok && v != "" {
		c.Journal.Dir = v
	}
	return nil
}
