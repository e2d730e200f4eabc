// Package compactor merges the small parquet files of a lakeFS branch into
// larger ones.
//
// A run seeds a working table from the first object of the branch, appends
// listed objects to it, exports it as file_<progress>.parquet, drops it and
// repeats until the configured file count has been consumed. Each batch lists
// and ingests twice while only the first pass advances progress.
package compactor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gigapi/compactor/config"
	"github.com/gigapi/compactor/lakefs"
	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/status"
	"github.com/go-faster/city"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the table API of the DuckDB session.
type Engine interface {
	CreateTableFromRemoteFile(ctx context.Context, table, path string) error
	AppendRemoteFile(ctx context.Context, table, path string) error
	ExportTable(ctx context.Context, table, out string) error
	DropTable(ctx context.Context, table string) error
	DropTableIfExists(ctx context.Context, table string) error
}

type Options struct {
	Repo     string
	Branch   string
	ToBranch string
	// Count is the number of files to consume and the listing amount of every pass
	Count      uint64
	SourceRoot string
	OutputRoot string
	// Table defaults to Repo
	Table string

	// Reseed creates a new working table before every batch after the first.
	// Without it the batch after a flush appends to a dropped table and fails.
	// A reseeded object counts one toward progress while the first seed does
	// not, so with count 5 over two objects the outputs are file_2 and file_5
	// rather than file_2 and file_4. Counting it keeps output names distinct
	// when a batch ingests nothing new.
	Reseed bool
	// AdvanceCursor lists after the last object seen instead of from the start
	AdvanceCursor bool
	// SkipSeen ingests each object at most once per run
	SkipSeen bool
	// ResetStale drops a working table left behind by a failed run before seeding
	ResetStale bool
	// SeedWithBranch seeds from <repo>/<branch>/<object> instead of <repo>/<object>
	SeedWithBranch bool
	// VerifyOutput looks every export up on ToBranch
	VerifyOutput bool
}

func OptionsFromConfig(cfg *config.Configuration) Options {
	return Options{
		Repo:           cfg.File.Repo,
		Branch:         cfg.File.Branch,
		ToBranch:       cfg.File.ToBranch,
		Count:          cfg.File.Count,
		SourceRoot:     cfg.File.SourceRoot,
		OutputRoot:     cfg.File.OutputRoot,
		Reseed:         cfg.Compactor.Reseed,
		AdvanceCursor:  cfg.Compactor.AdvanceCursor,
		SkipSeen:       cfg.Compactor.SkipSeen,
		ResetStale:     cfg.Compactor.ResetStale,
		SeedWithBranch: cfg.Compactor.SeedWithBranch,
		VerifyOutput:   cfg.Compactor.VerifyOutput,
	}
}

type Compactor struct {
	engine Engine
	lister lakefs.Lister
	opts   Options
	log    *zap.Logger

	mtx     sync.Mutex
	running bool
	last    *model.RunStats

	state    atomic.Int32
	progress atomic.Uint64

	// run state, only touched by the goroutine inside Run
	cursor string
	seen   map[uint64]struct{}
	stats  *model.RunStats
}

func New(engine Engine, lister lakefs.Lister, opts Options, log *zap.Logger) (*Compactor, error) {
	if opts.Repo == "" || opts.Branch == "" {
		return nil, status.Validation("repo and branch are required")
	}
	if opts.Count == 0 {
		return nil, status.Validation("count must be positive")
	}
	if opts.Table == "" {
		opts.Table = opts.Repo
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Compactor{engine: engine, lister: lister, opts: opts, log: log}, nil
}

func (c *Compactor) State() State {
	return State(c.state.Load())
}

func (c *Compactor) Progress() uint64 {
	return c.progress.Load()
}

// LastStats returns the statistics of the last finished run, if any.
func (c *Compactor) LastStats() (model.RunStats, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.last == nil {
		return model.RunStats{}, false
	}
	return *c.last, true
}

// Run executes one compaction run. Only one run may be in flight per Compactor.
// Any failure aborts the run; the working table is left as the failing
// statement left it.
func (c *Compactor) Run(ctx context.Context) (model.RunStats, error) {
	c.mtx.Lock()
	if c.running {
		c.mtx.Unlock()
		return model.RunStats{}, status.Validation("compaction run already in progress")
	}
	c.running = true
	c.mtx.Unlock()

	start := time.Now()
	c.reset()
	log := c.log.With(zap.String("run_id", c.stats.RunID), zap.String("repo", c.opts.Repo),
		zap.String("branch", c.opts.Branch))
	log.Info("compaction started", zap.Uint64("count", c.opts.Count))

	err := c.run(ctx, log)

	c.stats.Progress = c.Progress()
	c.stats.Elapsed = time.Since(start)
	stats := *c.stats
	if err != nil {
		c.setState(StateFailed)
		runsTotal.WithLabelValues("failed").Inc()
		log.Error("compaction failed", zap.Error(err), zap.Uint64("progress", stats.Progress),
			zap.Stringer("state", c.State()))
	} else {
		runsTotal.WithLabelValues("done").Inc()
		log.Info("compaction done", zap.Int("batches", stats.Batches),
			zap.Int("files", stats.FilesIngested), zap.Duration("elapsed", stats.Elapsed))
	}

	c.mtx.Lock()
	c.running = false
	c.last = &stats
	c.mtx.Unlock()
	return stats, err
}

func (c *Compactor) reset() {
	c.setState(StateUninitialized)
	c.progress.Store(0)
	progressGauge.Set(0)
	c.cursor = ""
	c.seen = make(map[uint64]struct{})
	c.stats = &model.RunStats{RunID: uuid.NewString()}
}

func (c *Compactor) run(ctx context.Context, log *zap.Logger) error {
	if c.opts.ResetStale {
		if err := c.engine.DropTableIfExists(ctx, c.opts.Table); err != nil {
			return fmt.Errorf("reset stale table: %w", err)
		}
	}
	if _, err := c.seed(ctx); err != nil {
		return err
	}

	seeded := true
	for c.Progress() < c.opts.Count {
		if !seeded && c.opts.Reseed {
			ok, err := c.seed(ctx)
			if err != nil {
				return err
			}
			if !ok {
				log.Info("branch exhausted before reseed", zap.Uint64("progress", c.Progress()))
				break
			}
			// a reseeded file is consumed, so output names keep increasing
			c.advance(1)
		}
		n, err := c.accumulate(ctx)
		if err != nil {
			return err
		}
		if err := c.flush(ctx, log); err != nil {
			return err
		}
		seeded = false
		if n == 0 {
			log.Info("branch exhausted", zap.Uint64("progress", c.Progress()))
			break
		}
	}
	c.setState(StateDone)
	return nil
}

// seed creates the working table from the first listed object. It reports
// false when a reseed finds nothing left; an empty branch on the first seed
// is ErrNoFilesAvailable.
func (c *Compactor) seed(ctx context.Context) (bool, error) {
	first := c.State() == StateUninitialized
	after := ""
	if c.opts.AdvanceCursor {
		after = c.cursor
	}
	var item model.ObjectItem
	for {
		items, err := c.lister.List(ctx, c.opts.Repo, c.opts.Branch, lakefs.ListOptions{Amount: 1, After: after})
		if err != nil {
			return false, fmt.Errorf("seed: %w", err)
		}
		if len(items) == 0 {
			if first {
				return false, status.ErrNoFilesAvailable
			}
			return false, nil
		}
		item = items[0]
		if c.opts.SkipSeen && c.isSeen(item.Path) {
			after = item.Path
			continue
		}
		break
	}

	path := SeedPath(c.opts.SourceRoot, c.opts.Repo, item.Path)
	if c.opts.SeedWithBranch {
		path = IngestPath(c.opts.SourceRoot, c.opts.Repo, c.opts.Branch, item.Path)
	}
	if err := c.engine.CreateTableFromRemoteFile(ctx, c.opts.Table, path); err != nil {
		return false, fmt.Errorf("seed from %s: %w", path, err)
	}
	if c.opts.AdvanceCursor {
		c.cursor = item.Path
	}
	c.markSeen(item.Path)
	c.stats.FilesIngested++
	filesIngested.Inc()
	c.setState(StateSeeded)
	c.log.Debug("seeded", zap.String("table", c.opts.Table), zap.String("path", path))
	return true, nil
}

// accumulate runs the two listing and ingestion passes of a batch. Only the
// first pass advances progress; its count is returned.
func (c *Compactor) accumulate(ctx context.Context) (uint64, error) {
	c.setState(StateAccumulating)
	n, err := c.ingest(ctx)
	if err != nil {
		return 0, err
	}
	c.advance(n)
	if n == 0 {
		return 0, nil
	}
	if _, err := c.ingest(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Compactor) ingest(ctx context.Context) (uint64, error) {
	opts := lakefs.ListOptions{Amount: int(c.opts.Count)}
	if c.opts.AdvanceCursor {
		opts.After = c.cursor
	}
	items, err := c.lister.List(ctx, c.opts.Repo, c.opts.Branch, opts)
	if err != nil {
		return 0, fmt.Errorf("list batch: %w", err)
	}
	if c.opts.AdvanceCursor && len(items) > 0 {
		c.cursor = items[len(items)-1].Path
	}

	var n uint64
	for _, item := range items {
		if c.opts.SkipSeen && c.isSeen(item.Path) {
			filesSkipped.Inc()
			continue
		}
		path := IngestPath(c.opts.SourceRoot, c.opts.Repo, c.opts.Branch, item.Path)
		if err := c.engine.AppendRemoteFile(ctx, c.opts.Table, path); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", path, err)
		}
		c.markSeen(item.Path)
		c.stats.FilesIngested++
		filesIngested.Inc()
		n++
	}
	return n, nil
}

func (c *Compactor) flush(ctx context.Context, log *zap.Logger) error {
	c.setState(StateFlushing)
	name := OutputName(c.Progress())
	out := ExportPath(c.opts.OutputRoot, name)
	if err := c.engine.ExportTable(ctx, c.opts.Table, out); err != nil {
		return fmt.Errorf("export %s: %w", out, err)
	}
	if err := c.engine.DropTable(ctx, c.opts.Table); err != nil {
		return fmt.Errorf("drop %s: %w", c.opts.Table, err)
	}
	if c.opts.VerifyOutput && c.opts.ToBranch != "" {
		if _, err := c.lister.GetByName(ctx, c.opts.Repo, c.opts.ToBranch, name+".parquet"); err != nil {
			return fmt.Errorf("verify %s: %w", out, err)
		}
	}
	c.stats.Batches++
	c.stats.Outputs = append(c.stats.Outputs, out)
	batchesFlushed.Inc()
	c.setState(StateAccumulating)
	log.Info("batch flushed", zap.String("out", out), zap.Uint64("progress", c.Progress()))
	return nil
}

func (c *Compactor) advance(n uint64) {
	progressGauge.Set(float64(c.progress.Add(n)))
}

func (c *Compactor) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Compactor) isSeen(path string) bool {
	_, ok := c.seen[city.Hash64([]byte(path))]
	return ok
}

func (c *Compactor) markSeen(path string) {
	if c.opts.SkipSeen {
		c.seen[city.Hash64([]byte(path))] = struct{}{}
	}
}
