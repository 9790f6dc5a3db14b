// Package tradelog writes an append-only JSON-lines journal of decisions
// and position lifecycle events, one file per UTC day.
package tradelog

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/types"
)

const fileExt = ".jsonl"

// dailyFile is a zapcore.WriteSyncer that reopens its target when the
// UTC date changes.
type dailyFile struct {
	mu  sync.Mutex
	dir string
	day string
	f   *os.File
	now func() time.Time
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	day := d.now().UTC().Format("2006-01-02")
	if d.f == nil || day != d.day {
		if d.f != nil {
			_ = d.f.Close()
		}
		if err := os.MkdirAll(d.dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(d.dir, day+fileExt), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		d.f, d.day = f, day
	}
	return d.f.Write(p)
}

func (d *dailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	return d.f.Sync()
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Journal records decisions under <dir>/decisions and trades under <dir>.
type Journal struct {
	dir       string
	decisions *zap.Logger
	trades    *zap.Logger
	files     []*dailyFile
}

var _ interfaces.CloseHandler = (*Journal)(nil)

func Open(dir string) (*Journal, error) {
	return open(dir, time.Now)
}

func open(dir string, now func() time.Time) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("tradelog: empty directory")
	}
	if err := os.MkdirAll(filepath.Join(dir, "decisions"), 0o755); err != nil {
		return nil, err
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = "event"
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	decFile := &dailyFile{dir: filepath.Join(dir, "decisions"), now: now}
	tradeFile := &dailyFile{dir: dir, now: now}

	build := func(ws zapcore.WriteSyncer) *zap.Logger {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zapcore.InfoLevel)
		return zap.New(core, zap.WithClock(clock{now}))
	}
	return &Journal{
		dir:       dir,
		decisions: build(decFile),
		trades:    build(tradeFile),
		files:     []*dailyFile{decFile, tradeFile},
	}, nil
}

type clock struct{ now func() time.Time }

func (c clock) Now() time.Time                         { return c.now() }
func (c clock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func (j *Journal) Decision(res types.DecisionResult) {
	fields := []zap.Field{
		zap.String("pair", res.Pair),
		zap.String("side", string(res.Side)),
		zap.String("reason", res.Reason),
		zap.Float64("long_score", res.LongScore),
		zap.Float64("short_score", res.ShortScore),
		zap.Float64("certainty", res.Certainty),
	}
	if res.Actionable() {
		fields = append(fields,
			zap.String("entry", res.Entry.String()),
			zap.String("stop_loss", res.StopLoss.String()),
			zap.String("take_profit", res.TakeProfit.String()),
			zap.String("quantity", res.Quantity.String()),
			zap.String("risk_reward", res.RiskReward.StringFixed(4)),
		)
	}
	j.decisions.Info("decision", fields...)
}

func (j *Journal) Opened(p types.Position) {
	j.trades.Info("open",
		zap.String("id", p.ID),
		zap.String("pair", p.Pair),
		zap.String("side", string(p.Side)),
		zap.String("entry", p.Entry.String()),
		zap.String("stop_loss", p.StopLoss.String()),
		zap.String("take_profit", p.TakeProfit.String()),
		zap.String("quantity", p.Quantity.String()),
	)
}

func (j *Journal) Closed(cp types.ClosedPosition) {
	j.trades.Info("close",
		zap.String("id", cp.ID),
		zap.String("pair", cp.Pair),
		zap.String("side", string(cp.Side)),
		zap.String("reason", string(cp.CloseReason)),
		zap.String("entry", cp.Entry.String()),
		zap.String("exit", cp.ExitPrice.String()),
		zap.String("gross_pnl", cp.GrossPnL.String()),
		zap.String("fees", cp.Fees.String()),
		zap.String("net_pnl", cp.NetPnL.String()),
		zap.Duration("held", cp.ClosedAt.Sub(cp.OpenedAt)),
	)
}

func (j *Journal) HandleClose(_ context.Context, cp types.ClosedPosition) error {
	j.Closed(cp)
	return nil
}

func (j *Journal) Close() error {
	_ = j.decisions.Sync()
	_ = j.trades.Sync()
	var errs []error
	for _, f := range j.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// CompressOlder gzips journal files last modified more than
// retentionDays ago and removes the originals.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, fileExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := errors.Join(gw.Close(), out.Close())
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return closeErr
}
