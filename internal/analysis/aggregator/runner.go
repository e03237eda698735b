// Package aggregator запускает стратегии над таблицей баров и собирает
// результаты в таблицы сигналов
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/bfsignals/internal/analysis/strategy"
	"github.com/skalibog/bfsignals/internal/config"
	"github.com/skalibog/bfsignals/internal/metrics"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Factory создает экземпляр стратегии
type Factory func(name string, overrides map[string]interface{}) (strategy.Strategy, error)

// Runner прогоняет стратегии. Для стратегий по одному символу каждый
// символ обрабатывается отдельным экземпляром со своим состоянием.
type Runner struct {
	workers    int
	strategies []config.StrategyConfig
	factory    Factory
}

// NewRunner создает раннер для включенных в конфигурации стратегий
func NewRunner(cfg *config.Config) *Runner {
	workers := cfg.Run.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		workers:    workers,
		strategies: cfg.Enabled(),
		factory:    strategy.New,
	}
}

// RunAll прогоняет все стратегии. Ошибка одной стратегии не
// останавливает остальные, ошибки объединяются.
func (r *Runner) RunAll(ctx context.Context, f *models.Frame) ([]*models.SignalSet, error) {
	var (
		sets []*models.SignalSet
		errs error
	)
	for _, sc := range r.strategies {
		if err := ctx.Err(); err != nil {
			return sets, multierr.Append(errs, err)
		}
		set, err := r.Run(ctx, sc.Name, sc.Params, f)
		if err != nil {
			logger.Error("Ошибка прогона стратегии", zap.String("strategy", sc.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sc.Name, err))
			continue
		}
		sets = append(sets, set)
	}
	return sets, errs
}

// Run прогоняет одну стратегию над таблицей
func (r *Runner) Run(ctx context.Context, name string, overrides map[string]interface{}, f *models.Frame) (*models.SignalSet, error) {
	proto, err := r.factory(name, overrides)
	if err != nil {
		return nil, err
	}
	sorted, err := proto.Preprocess(f)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var signals []float64
	if strategy.IsCrossSectional(proto) || sorted.Symbol == nil {
		signals, err = proto.GenerateSignals(sorted)
	} else {
		signals, err = r.fanOut(ctx, name, overrides, sorted)
	}
	if err != nil {
		return nil, err
	}

	set := &models.SignalSet{
		RunID:    uuid.NewString(),
		Strategy: name,
		Frame:    sorted,
		Signal:   signals,
		Entry:    proto.EntryRules(sorted, signals),
		Exit:     proto.ExitRules(sorted, signals),
		Size:     proto.PositionSizing(sorted, signals),
	}

	elapsed := time.Since(start)
	entries, exits := set.Counts()
	metrics.ObserveRun(name, elapsed.Seconds(), entries, exits)
	logger.Info("Стратегия отработала",
		zap.String("strategy", name),
		zap.String("run_id", set.RunID),
		zap.Int("rows", sorted.Len()),
		zap.Int("entries", entries),
		zap.Int("exits", exits),
		zap.Duration("elapsed", elapsed))
	return set, nil
}

// fanOut прогоняет символы параллельно. Каждый символ пишет только в свои
// строки результата, поэтому блокировки не нужны.
func (r *Runner) fanOut(ctx context.Context, name string, overrides map[string]interface{}, f *models.Frame) ([]float64, error) {
	out := make([]float64, f.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, group := range f.Groups() {
		group := group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := r.factory(name, overrides)
			if err != nil {
				return err
			}
			sig, err := s.GenerateSignals(f.Subset(group.Rows))
			if err != nil {
				logger.Warn("Символ пропущен",
					zap.String("strategy", name),
					zap.String("symbol", group.Symbol),
					zap.Error(err))
				metrics.SymbolsSkipped.WithLabelValues(name).Inc()
				return nil
			}
			for k, row := range group.Rows {
				out[row] = sig[k]
			}
			logger.Debug("Символ обработан",
				zap.String("strategy", name),
				zap.String("symbol", group.Symbol))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
