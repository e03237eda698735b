package strategy

import (
	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameTrendMomentum = "trend_momentum"

// TrendMomentum вход по тренду (MA), подтвержденному RSI и положением
// цены относительно полос Боллинджера
type TrendMomentum struct {
	base
}

func trendMomentumSchema() Schema {
	return Schema{
		"short_ma_period": intParam(50, 5, 100, "Период короткой скользящей средней"),
		"long_ma_period":  intParam(200, 50, 500, "Период длинной скользящей средней"),
		"rsi_period":      intParam(14, 5, 50, "Период RSI"),
		"rsi_lower":       floatParam(40, 20, 50, "Нижняя граница RSI для входа"),
		"rsi_upper":       floatParam(70, 50, 80, "Верхняя граница RSI для входа"),
		"rsi_exit":        floatParam(75, 70, 90, "Уровень RSI для выхода"),
		"bb_period":       intParam(20, 10, 50, "Период полос Боллинджера"),
		"bb_std":          floatParam(2, 1, 3, "Ширина полос в стандартных отклонениях"),
		"position_size":   positionSizeParam,
	}
}

func NewTrendMomentum(overrides map[string]interface{}) (*TrendMomentum, error) {
	b, err := newBase(NameTrendMomentum,
		"Тренд с фильтром импульса: вход при MA короткой выше длинной, RSI в "+
			"коридоре и цене выше средней полосы Боллинджера. Выход при цене ниже "+
			"короткой MA, перекупленности по RSI или цене ниже нижней полосы.",
		trendMomentumSchema(), overrides, models.ColClose)
	if err != nil {
		return nil, err
	}
	if err := b.orderedPeriods("short_ma_period", "long_ma_period"); err != nil {
		return nil, err
	}
	return &TrendMomentum{base: b}, nil
}

func (s *TrendMomentum) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		closes := sub.Column(models.ColClose)
		warmup := p.Int("long_ma_period")
		if bb := p.Int("bb_period"); bb > warmup {
			warmup = bb
		}
		return &trendMomentumRules{
			p:      p,
			warmup: warmup,
			closes: closes,
			maS:    technical.SMA(closes, p.Int("short_ma_period")),
			maL:    technical.SMA(closes, p.Int("long_ma_period")),
			rsi:    technical.RSI(closes, p.Int("rsi_period")),
			bands:  technical.Bollinger(closes, p.Int("bb_period"), p.Float("bb_std")),
		}
	})
}

type trendMomentumRules struct {
	p      Params
	warmup int
	closes []float64
	maS    []float64
	maL    []float64
	rsi    []float64
	bands  technical.Bands
}

func (r *trendMomentumRules) Warmup() int { return r.warmup }

func (r *trendMomentumRules) Available(i int) bool {
	return technical.AllAvailable(r.closes[i], r.maS[i], r.maL[i], r.rsi[i], r.bands.Middle[i], r.bands.Lower[i])
}

// ForcedExit слом тренда
func (r *trendMomentumRules) ForcedExit(i int, _ state.PositionState) bool {
	return r.closes[i] < r.maS[i]
}

func (r *trendMomentumRules) SoftExit(i int, _ state.PositionState) bool {
	return r.rsi[i] > r.p.Float("rsi_exit") || r.closes[i] < r.bands.Lower[i]
}

func (r *trendMomentumRules) Entry(i int, _ state.PositionState) state.Side {
	trend := r.maS[i] > r.maL[i]
	momentum := r.rsi[i] > r.p.Float("rsi_lower") && r.rsi[i] < r.p.Float("rsi_upper")
	if trend && momentum && r.closes[i] > r.bands.Middle[i] {
		return state.Long
	}
	return state.Flat
}
