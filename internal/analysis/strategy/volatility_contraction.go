package strategy

import (
	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameVolatilityContraction = "volatility_contraction"

// VolatilityContraction пробой диапазона консолидации после сжатия
// полос Боллинджера при повышенном объеме
type VolatilityContraction struct {
	base
}

func volatilityContractionSchema() Schema {
	return Schema{
		"bb_period":            intParam(20, 10, 50, "Период полос Боллинджера"),
		"bb_std":               floatParam(2, 1, 3, "Ширина полос в стандартных отклонениях"),
		"width_lookback":       intParam(90, 30, 200, "Окно процентиля ширины полос"),
		"width_percentile":     floatParam(10, 1, 20, "Порог процентиля ширины для сжатия"),
		"consolidation_period": intParam(20, 10, 50, "Период диапазона консолидации"),
		"volume_multiplier":    floatParam(1.5, 1, 3, "Минимальное отношение объема к среднему"),
		"volume_period":        intParam(20, 10, 50, "Период среднего объема"),
		"atr_period":           intParam(14, 5, 30, "Период ATR"),
		"atr_multiplier":       floatParam(1.5, 1, 3, "Множитель ATR для трейлинг-стопа"),
		"max_holding_period":   intParam(40, 10, 100, "Максимальное удержание в барах"),
		"position_size":        positionSizeParam,
	}
}

func NewVolatilityContraction(overrides map[string]interface{}) (*VolatilityContraction, error) {
	b, err := newBase(NameVolatilityContraction,
		"Пробой после сжатия волатильности: вход, когда ширина полос Боллинджера "+
			"в нижнем процентиле, цена выше максимума консолидации и объем выше "+
			"среднего. Выход по трейлинг-стопу ATR, возврату под минимум "+
			"консолидации или по времени.",
		volatilityContractionSchema(), overrides,
		models.ColHigh, models.ColLow, models.ColClose, models.ColVolume)
	if err != nil {
		return nil, err
	}
	return &VolatilityContraction{base: b}, nil
}

func (s *VolatilityContraction) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		high := sub.Column(models.ColHigh)
		low := sub.Column(models.ColLow)
		closes := sub.Column(models.ColClose)
		volume := sub.Column(models.ColVolume)

		period := p.Int("consolidation_period")
		bands := technical.Bollinger(closes, p.Int("bb_period"), p.Float("bb_std"))
		warmup := p.Int("width_lookback")
		if period > warmup {
			warmup = period
		}
		return &contractionRules{
			p:         p,
			warmup:    warmup,
			closes:    closes,
			widthRank: technical.PercentRank(bands.Width, p.Int("width_lookback")),
			consHigh:  technical.Shift(technical.RollingMax(high, period), 1),
			consLow:   technical.Shift(technical.RollingMin(low, period), 1),
			volRatio:  technical.Ratio(volume, technical.SMA(volume, p.Int("volume_period"))),
			atr:       technical.ATR(high, low, closes, p.Int("atr_period")),
		}
	})
}

type contractionRules struct {
	p         Params
	warmup    int
	closes    []float64
	widthRank []float64
	consHigh  []float64
	consLow   []float64
	volRatio  []float64
	atr       []float64
}

func (r *contractionRules) Warmup() int { return r.warmup }

func (r *contractionRules) Available(i int) bool {
	return technical.AllAvailable(r.closes[i], r.widthRank[i], r.consHigh[i], r.consLow[i], r.volRatio[i], r.atr[i])
}

func (r *contractionRules) ForcedExit(i int, st state.PositionState) bool {
	stop := st.Highest - r.p.Float("atr_multiplier")*r.atr[i]
	return r.closes[i] < stop ||
		r.closes[i] < r.consLow[i] ||
		st.Held(i) >= r.p.Int("max_holding_period")
}

func (r *contractionRules) SoftExit(int, state.PositionState) bool { return false }

func (r *contractionRules) Entry(i int, _ state.PositionState) state.Side {
	squeeze := r.widthRank[i] <= r.p.Float("width_percentile")
	breakout := r.closes[i] > r.consHigh[i]
	volume := r.volRatio[i] > r.p.Float("volume_multiplier")
	if squeeze && breakout && volume {
		return state.Long
	}
	return state.Flat
}
