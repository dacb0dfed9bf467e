package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquidationRouter/internal/model"
	"liquidationRouter/internal/storage"
)

// DefaultGapGrace is how long a missing sequence id is re-read before it is
// treated as a rolled back insert.
const DefaultGapGrace = 5 * time.Minute

// Source reads the swap history ledger by sequence id.
type Source interface {
	LatestSequence(ctx context.Context) (uint64, error)
	SwapsBetween(ctx context.Context, from, to uint64) ([]model.SwapRecord, error)
}

// RunConfig holds runtime settings for an export. A zero ToSeq exports up to
// the latest sequence id at start.
type RunConfig struct {
	FromSeq           uint64
	ToSeq             uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	GapGrace          time.Duration
}

// Runner copies swap history from a Source into a sink in sequence order.
//
// Sequence ids are handed out before their insert commits, so with several
// writers id N can become visible after N+1. Ids missing below the highest
// visible one are kept as gaps in the checkpoint and retried until they show
// up or GapGrace passes.
type Runner struct {
	cfg        RunConfig
	source     Source
	sink       storage.SwapSink
	logger     *zap.Logger
	retry      backoff
	checkpoint checkpointFile
	now        func() time.Time
}

func NewRunner(cfg RunConfig, source Source, sink storage.SwapSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GapGrace <= 0 {
		cfg.GapGrace = DefaultGapGrace
	}
	r := &Runner{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
		retry:  newBackoff(cfg.MaxRetries, cfg.RetryBackoff, logger),
		now:    time.Now,
	}
	if cfg.CheckpointEnabled {
		r.checkpoint = checkpointFile(cfg.CheckpointPath)
	}
	return r
}

// Run exports every record in the configured range that a previous run has not
// checkpointed, and returns the number written.
func (r *Runner) Run(ctx context.Context) (int, error) {
	switch {
	case r.source == nil:
		return 0, errors.New("export source is nil")
	case r.sink == nil:
		return 0, errors.New("export sink is nil")
	case r.cfg.BatchSize == 0:
		return 0, errors.New("batch size must be positive")
	}

	from, to, err := r.bounds(ctx)
	if err != nil {
		return 0, err
	}
	cp, resumed, err := r.checkpoint.load()
	if err != nil {
		return 0, err
	}

	written, err := r.retryGaps(ctx, &cp)
	if err != nil {
		return written, err
	}

	if resumed && cp.LastSeq >= from {
		r.logger.Info("resume from checkpoint",
			zap.Uint64("last_seq", cp.LastSeq),
			zap.Uint64("exported", cp.Exported),
			zap.Int("gaps", len(cp.Gaps)),
		)
		from = cp.LastSeq + 1
	}
	if to == 0 || from > to {
		r.logger.Info("nothing new to export", zap.Uint64("from", from), zap.Uint64("to", to))
		return written, r.saveCheckpoint(cp)
	}

	spans, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return written, err
	}
	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, missing, err := r.exportSpan(ctx, span)
		if err != nil {
			return written, err
		}
		written += n

		seen := r.now().UTC()
		for _, seq := range missing {
			cp.Gaps = append(cp.Gaps, Gap{Seq: seq, FirstSeen: seen})
		}
		cp.LastSeq = span.To
		cp.Exported += uint64(n)
		if err := r.saveCheckpoint(cp); err != nil {
			return written, err
		}
	}
	return written, nil
}

// bounds clamps the range to the latest visible id. Ids past it may not be
// handed out yet, so they are never recorded as gaps.
func (r *Runner) bounds(ctx context.Context) (uint64, uint64, error) {
	var latest uint64
	err := r.retry.do(ctx, "latest sequence", func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestSequence(ctx)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	to := latest
	if r.cfg.ToSeq != 0 && r.cfg.ToSeq < latest {
		to = r.cfg.ToSeq
	}
	return max(r.cfg.FromSeq, 1), to, nil
}

// retryGaps re-reads ids recorded as missing. Found records are written;
// gaps older than GapGrace are dropped.
func (r *Runner) retryGaps(ctx context.Context, cp *Checkpoint) (int, error) {
	if len(cp.Gaps) == 0 {
		return 0, nil
	}

	var (
		found   []model.SwapRecord
		pending []Gap
	)
	for _, gap := range cp.Gaps {
		var swaps []model.SwapRecord
		err := r.retry.do(ctx, "read gap", func(ctx context.Context) error {
			var err error
			swaps, err = r.source.SwapsBetween(ctx, gap.Seq, gap.Seq)
			return err
		}, zap.Uint64("seq", gap.Seq))
		if err != nil {
			return 0, err
		}

		switch {
		case len(swaps) > 0:
			found = append(found, swaps[0])
		case r.now().Sub(gap.FirstSeen) >= r.cfg.GapGrace:
			r.logger.Warn("sequence gap abandoned",
				zap.Uint64("seq", gap.Seq),
				zap.Time("first_seen", gap.FirstSeen),
			)
		default:
			pending = append(pending, gap)
		}
	}

	if len(found) > 0 {
		if err := r.sink.PutSwapBatch(found); err != nil {
			return 0, fmt.Errorf("write late swaps: %w", err)
		}
		r.logger.Info("late swaps exported", zap.Int("swaps", len(found)))
	}
	cp.Gaps = pending
	cp.Exported += uint64(len(found))
	return len(found), nil
}

// exportSpan writes the visible records of span and returns the ids that
// were missing from it.
func (r *Runner) exportSpan(ctx context.Context, span SeqRange) (int, []uint64, error) {
	var swaps []model.SwapRecord
	err := r.retry.do(ctx, "read swaps", func(ctx context.Context) error {
		var err error
		swaps, err = r.source.SwapsBetween(ctx, span.From, span.To)
		return err
	}, zap.Uint64("from", span.From), zap.Uint64("to", span.To))
	if err != nil {
		return 0, nil, err
	}

	var (
		records []model.SwapRecord
		missing []uint64
	)
	next := span.From
	for _, rec := range swaps {
		if rec.SequenceID < next || rec.SequenceID > span.To {
			continue
		}
		for ; next < rec.SequenceID; next++ {
			missing = append(missing, next)
		}
		records = append(records, rec)
		next = rec.SequenceID + 1
	}
	// The span ends at or below the latest visible id, so its tail is
	// missing too. next wraps past MaxUint64 only once the span is done.
	for ; next != 0 && next <= span.To; next++ {
		missing = append(missing, next)
	}

	if err := r.sink.PutSwapBatch(records); err != nil {
		return 0, nil, fmt.Errorf("write swaps %d-%d: %w", span.From, span.To, err)
	}
	r.logger.Info("batch exported",
		zap.Int("swaps", len(records)),
		zap.Int("missing", len(missing)),
		zap.Uint64("from", span.From),
		zap.Uint64("to", span.To),
	)
	return len(records), missing, nil
}

func (r *Runner) saveCheckpoint(cp Checkpoint) error {
	cp.UpdatedAt = r.now().UTC()
	return r.checkpoint.save(cp)
}
