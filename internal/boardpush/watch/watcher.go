// Package watch 驱动单块看板的发布循环：轮询源文件，检测新时间戳，
// 渲染并提交，成功后记录检查点。
// Drives the per-board publish loop: poll the source file, detect a new
// clock value, render and submit, checkpoint on success.
package watch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/announce"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/board"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/gasprice"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/render"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/submit"
	"github.com/chenzhangda16/web3-boardpush/pkg/obs"
)

const DefaultPollInterval = 60 * time.Second

// Publisher is the submission path the watcher drives once per new clock.
type Publisher interface {
	Publish(ctx context.Context, doc string) (*submit.Result, error)
}

type Config struct {
	BoardID int
	TokenID int64

	BoardPath      string // default board<ID>.txt
	TemplatePath   string // default template.html
	CheckpointPath string // default ./data/board<ID>.ckpt

	PollInterval time.Duration
}

// Watcher owns one board's publish state. A failed cycle leaves
// lastPublished untouched so the same clock is retried next cycle.
type Watcher struct {
	cfg  Config
	pub  Publisher
	gas  *gasprice.Controller
	rend *render.Renderer
	ckpt Checkpoint
	sink announce.Sink
	log  zerolog.Logger

	lastPublished string
}

func New(cfg Config, pub Publisher, gas *gasprice.Controller, sink announce.Sink, logger zerolog.Logger) (*Watcher, error) {
	if pub == nil {
		return nil, errors.New("publisher must be provided")
	}
	if cfg.BoardPath == "" {
		cfg.BoardPath = fmt.Sprintf("board%d.txt", cfg.BoardID)
	}
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = "template.html"
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = fmt.Sprintf("./data/board%d.ckpt", cfg.BoardID)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if sink == nil {
		sink = announce.NopSink{}
	}

	ckpt, err := NewFileCheckpoint(cfg.CheckpointPath)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cfg:  cfg,
		pub:  pub,
		gas:  gas,
		rend: render.New(cfg.TemplatePath),
		ckpt: ckpt,
		sink: sink,
		log:  logger.With().Str("component", "watcher").Int("board_id", cfg.BoardID).Logger(),
	}, nil
}

// Run executes publish cycles until ctx is canceled. Cycle errors are logged
// and absorbed; only cancellation ends the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if clock, ok, err := w.ckpt.Load(); err != nil {
		w.log.Warn().Err(err).Msg("Checkpoint load failed, cold start")
	} else if ok {
		w.lastPublished = clock
		w.log.Info().Str("clock", clock).Msg("Resuming from checkpoint")
	}

	w.log.Info().
		Str("board_file", w.cfg.BoardPath).
		Int64("token_id", w.cfg.TokenID).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("Watcher started")

	// The interval starts after each cycle; a submission that blocks for
	// minutes still gets a full sleep before the next poll.
	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	for {
		w.cycle(ctx)
		timer.Reset(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *Watcher) cycle(ctx context.Context) {
	rec, err := board.Load(w.cfg.BoardPath)
	switch {
	case err == nil:
	case os.IsNotExist(err), errors.Is(err, board.ErrEmpty):
		w.log.Info().Str("board_file", w.cfg.BoardPath).Msg("Board file missing or empty, waiting")
		return
	case errors.Is(err, board.ErrNoTimestamp):
		w.log.Warn().Str("board_file", w.cfg.BoardPath).Msg("Board file has no timestamp line, waiting")
		return
	default:
		w.log.Error().Err(err).Str("board_file", w.cfg.BoardPath).Msg("Failed to read board file")
		return
	}

	if w.lastPublished != "" && rec.Timestamp == w.lastPublished {
		w.log.Debug().Str("clock", rec.Timestamp).Msg("No new update")
		return
	}

	w.log.Info().Str("clock", rec.Timestamp).Msg("Detected board update")

	doc, err := w.rend.Render(rec.Lines, w.cfg.BoardID, rec.Timestamp)
	if err != nil {
		w.log.Error().Err(err).Msg("Render failed")
		return
	}

	label := strconv.Itoa(w.cfg.BoardID)
	start := time.Now()
	res, err := w.pub.Publish(ctx, doc)
	obs.PublishDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if w.gas != nil {
		price, _ := new(big.Float).SetInt(w.gas.Current()).Float64()
		obs.GasPriceWei.WithLabelValues(label).Set(price)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		obs.PublishAttempts.WithLabelValues(label, "failure").Inc()
		w.log.Warn().Err(err).Str("clock", rec.Timestamp).Msg("Publish failed, will retry next cycle")
		w.emit(ctx, announce.EventPublishFailed, announce.PublishFailure{
			BoardID: w.cfg.BoardID,
			Clock:   rec.Timestamp,
			Error:   err.Error(),
		})
		return
	}

	obs.PublishAttempts.WithLabelValues(label, "success").Inc()
	if fee, _ := res.FeeEth.Float64(); fee > 0 {
		obs.FeesEth.WithLabelValues(label).Add(fee)
	}

	w.lastPublished = rec.Timestamp
	if err := w.ckpt.Save(rec.Timestamp); err != nil {
		w.log.Warn().Err(err).Str("clock", rec.Timestamp).Msg("Checkpoint save failed")
	}

	w.emit(ctx, announce.EventPublished, announce.PublishEvent{
		BoardID:     w.cfg.BoardID,
		TokenID:     w.cfg.TokenID,
		Clock:       rec.Timestamp,
		Endpoint:    res.Endpoint,
		TxHash:      res.TxHash.Hex(),
		GasUsed:     res.GasUsed,
		GasPriceWei: res.GasPriceWei.String(),
		FeeEth:      res.FeeEth.Text('f', 10),
	})
	w.log.Info().
		Str("clock", rec.Timestamp).
		Str("tx_hash", res.TxHash.Hex()).
		Str("endpoint", res.Endpoint).
		Msg("Board update published")
}

func (w *Watcher) emit(ctx context.Context, typ string, v any) {
	if err := w.sink.Emit(ctx, typ, v); err != nil {
		w.log.Warn().Err(err).Str("event", typ).Msg("Announce failed")
	}
}
