package strategy

import (
	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameMACrossover = "ma_crossover"

// MACrossover вход на пересечении короткой средней снизу вверх длинной
// (золотой крест), выход на обратном пересечении
type MACrossover struct {
	base
}

func maCrossoverSchema() Schema {
	return Schema{
		"short_ma_period": intParam(50, 5, 100, "Период короткой скользящей средней"),
		"long_ma_period":  intParam(200, 50, 500, "Период длинной скользящей средней"),
		"position_size":   positionSizeParam,
	}
}

// NewMACrossover создает стратегию с переопределенными параметрами
func NewMACrossover(overrides map[string]interface{}) (*MACrossover, error) {
	b, err := newBase(NameMACrossover,
		"Пересечение скользящих средних: вход при пересечении короткой средней "+
			"длинной снизу вверх, выход при обратном пересечении. Только длинные позиции.",
		maCrossoverSchema(), overrides, models.ColClose)
	if err != nil {
		return nil, err
	}
	if err := b.orderedPeriods("short_ma_period", "long_ma_period"); err != nil {
		return nil, err
	}
	return &MACrossover{base: b}, nil
}

func (s *MACrossover) GenerateSignals(f *models.Frame) ([]float64, error) {
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		closes := sub.Column(models.ColClose)
		return &crossoverRules{
			warmup: s.params.Int("long_ma_period"),
			fast:   technical.SMA(closes, s.params.Int("short_ma_period")),
			slow:   technical.SMA(closes, s.params.Int("long_ma_period")),
		}
	})
}

// crossoverRules знак (fast - slow) меняется между i-1 и i
type crossoverRules struct {
	warmup     int
	fast, slow []float64
}

func (r *crossoverRules) Warmup() int { return r.warmup }

func (r *crossoverRules) Available(i int) bool {
	return i > 0 && technical.AllAvailable(r.fast[i], r.slow[i], r.fast[i-1], r.slow[i-1])
}

func (r *crossoverRules) ForcedExit(int, state.PositionState) bool { return false }

func (r *crossoverRules) SoftExit(i int, st state.PositionState) bool {
	return st.Side == state.Long && r.fast[i-1] >= r.slow[i-1] && r.fast[i] < r.slow[i]
}

func (r *crossoverRules) Entry(i int, _ state.PositionState) state.Side {
	if r.fast[i-1] <= r.slow[i-1] && r.fast[i] > r.slow[i] {
		return state.Long
	}
	return state.Flat
}
