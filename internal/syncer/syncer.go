// Package syncer runs one synchronization pass: fetch an order, render it,
// and push the grid into the order's tab.
package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/records"
	"order_sheets_sync/internal/render"
)

// Destination is where grids land. sheets.Destination and xlsx.Workbook
// implement it.
type Destination interface {
	EnsureTab(ctx context.Context, title string) (int64, error)
	WriteGrid(ctx context.Context, title string, grid render.Grid) error
	ClearStale(ctx context.Context, tabID int64, rows, cols int) error
	Format(ctx context.Context, tabID int64, rows, cols int) error
}

type Options struct {
	Format bool
	// ClearStale blanks cells left by an earlier, larger grid.
	ClearStale bool
	// DedupeTabCreate collapses concurrent EnsureTab calls for one title
	// within this process. Passes in other processes can still race.
	DedupeTabCreate bool
}

type Result struct {
	OrderID   string `json:"order_id"`
	Title     string `json:"title"`
	TabID     int64  `json:"tab_id"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Formatted bool   `json:"formatted"`
}

type Syncer struct {
	source      records.Source
	destination Destination
	builder     render.Builder
	opts        Options
	tabs        singleflight.Group
}

func New(source records.Source, destination Destination, builder render.Builder, opts Options) *Syncer {
	return &Syncer{
		source:      source,
		destination: destination,
		builder:     builder,
		opts:        opts,
	}
}

// Sync runs the pass for key. Steps run in order and the first failure ends
// the pass; nothing already written is rolled back.
func (s *Syncer) Sync(ctx context.Context, key string) (Result, error) {
	start := time.Now()
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{}, failure.Newf(failure.InvalidRequest, "sync", "order key is empty")
	}

	logger := log.With().Str("order_id", key).Logger()
	logger.Debug().Msg("Starting sync pass")

	order, err := s.source.Order(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch order")
		return Result{}, err
	}

	title := render.TitleFor(order)
	tabID, err := s.ensureTab(ctx, title)
	if err != nil {
		logger.Error().Err(err).Str("title", title).Msg("Failed to ensure tab")
		return Result{}, err
	}

	grid := s.builder.Build(order)
	result := Result{
		OrderID: order.ID,
		Title:   title,
		TabID:   tabID,
		Rows:    grid.Rows(),
		Columns: grid.Columns(),
	}

	if err := s.destination.WriteGrid(ctx, title, grid); err != nil {
		logger.Error().Err(err).Str("title", title).Msg("Failed to write grid")
		return Result{}, err
	}

	if s.opts.ClearStale {
		if err := s.destination.ClearStale(ctx, tabID, result.Rows, result.Columns); err != nil {
			logger.Error().Err(err).Str("title", title).Msg("Failed to clear stale cells")
			return Result{}, err
		}
	}

	if s.opts.Format {
		if err := s.destination.Format(ctx, tabID, result.Rows, result.Columns); err != nil {
			logger.Error().Err(err).Str("title", title).Msg("Failed to format tab")
			return Result{}, err
		}
		result.Formatted = true
	}

	logger.Info().
		Str("title", title).
		Int64("tab_id", tabID).
		Int("rows", result.Rows).
		Int("columns", result.Columns).
		Bool("formatted", result.Formatted).
		Dur("elapsed", time.Since(start)).
		Msg("Order synchronized")
	return result, nil
}

func (s *Syncer) ensureTab(ctx context.Context, title string) (int64, error) {
	if !s.opts.DedupeTabCreate {
		return s.destination.EnsureTab(ctx, title)
	}
	// the shared lookup must not inherit one caller's deadline; each caller
	// still gives up on its own context
	shared := context.WithoutCancel(ctx)
	ch := s.tabs.DoChan(title, func() (any, error) {
		return s.destination.EnsureTab(shared, title)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug().Str("title", title).Msg("Shared in-flight tab lookup")
		}
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	}
}

// Outcome pairs a key with the result of its pass.
type Outcome struct {
	Key    string
	Result Result
	Err    error
}

// SyncMany runs independent passes for keys with at most limit in flight.
// Every key gets its own pass; one failure does not cancel the others.
func (s *Syncer) SyncMany(ctx context.Context, keys []string, limit int) []Outcome {
	outcomes := make([]Outcome, len(keys))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range keys {
		g.Go(func() error {
			result, err := s.Sync(ctx, key)
			outcomes[i] = Outcome{Key: key, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
