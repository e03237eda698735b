package strategy

import (
	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameLiquidityMomentum = "liquidity_momentum"

// LiquidityMomentum импульсная стратегия с фильтром ликвидности: денежный
// объем, положение цены относительно VWAP и тренд OBV
type LiquidityMomentum struct {
	base
}

func liquidityMomentumSchema() Schema {
	return Schema{
		"vwap_period":               intParam(20, 10, 50, "Период VWAP"),
		"vwap_percentile_threshold": floatParam(70, 50, 90, "Процентиль close/VWAP для входа"),
		"vwap_exit_threshold":       floatParam(50, 30, 70, "Процентиль close/VWAP для выхода"),
		"obv_short_period":          intParam(9, 5, 20, "Период короткой EMA от OBV"),
		"obv_long_period":           intParam(21, 15, 50, "Период длинной EMA от OBV"),
		"dollar_volume_period":      intParam(20, 10, 50, "Период среднего денежного объема"),
		"dollar_volume_threshold":   floatParam(1e6, 1e5, 1e7, "Минимальный средний денежный объем"),
		"momentum_period":           intParam(14, 5, 30, "Период импульса"),
		"momentum_threshold":        floatParam(0.02, 0.01, 0.10, "Минимальный импульс для входа"),
		"atr_period":                intParam(14, 5, 30, "Период ATR"),
		"atr_multiplier":            floatParam(1.2, 1, 3, "Множитель ATR для трейлинг-стопа"),
		"max_holding_period":        intParam(30, 10, 60, "Максимальное удержание в барах"),
		"position_size":             positionSizeParam,
	}
}

func NewLiquidityMomentum(overrides map[string]interface{}) (*LiquidityMomentum, error) {
	b, err := newBase(NameLiquidityMomentum,
		"Импульс с учетом ликвидности: вход при высоком денежном объеме, цене "+
			"в верхнем процентиле относительно VWAP, растущем OBV и положительном "+
			"импульсе. Выход по трейлинг-стопу ATR, цене ниже VWAP, по времени "+
			"или при ослаблении цены и OBV.",
		liquidityMomentumSchema(), overrides,
		models.ColHigh, models.ColLow, models.ColClose, models.ColVolume)
	if err != nil {
		return nil, err
	}
	return &LiquidityMomentum{base: b}, nil
}

func (s *LiquidityMomentum) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		high := sub.Column(models.ColHigh)
		low := sub.Column(models.ColLow)
		closes := sub.Column(models.ColClose)
		volume := sub.Column(models.ColVolume)

		vwapPeriod := p.Int("vwap_period")
		vwap := technical.VWAP(high, low, closes, volume, vwapPeriod)
		obv := technical.OBV(closes, volume)
		warmup := vwapPeriod
		if l := p.Int("obv_long_period"); l > warmup {
			warmup = l
		}
		return &liquidityRules{
			p:         p,
			warmup:    warmup,
			closes:    closes,
			vwap:      vwap,
			vwapRank:  technical.PercentRank(technical.Ratio(closes, vwap), vwapPeriod),
			obvShort:  technical.EMA(obv, p.Int("obv_short_period")),
			obvLong:   technical.EMA(obv, p.Int("obv_long_period")),
			avgDollar: technical.SMA(technical.DollarVolume(closes, volume), p.Int("dollar_volume_period")),
			momentum:  technical.Momentum(closes, p.Int("momentum_period")),
			atr:       technical.ATR(high, low, closes, p.Int("atr_period")),
		}
	})
}

type liquidityRules struct {
	p         Params
	warmup    int
	closes    []float64
	vwap      []float64
	vwapRank  []float64
	obvShort  []float64
	obvLong   []float64
	avgDollar []float64
	momentum  []float64
	atr       []float64
}

func (r *liquidityRules) Warmup() int { return r.warmup }

func (r *liquidityRules) Available(i int) bool {
	return technical.AllAvailable(r.closes[i], r.vwap[i], r.vwapRank[i], r.obvShort[i], r.obvLong[i],
		r.avgDollar[i], r.momentum[i], r.atr[i])
}

func (r *liquidityRules) ForcedExit(i int, st state.PositionState) bool {
	stop := st.Highest - r.p.Float("atr_multiplier")*r.atr[i]
	return r.closes[i] < stop ||
		r.closes[i] < r.vwap[i] ||
		st.Held(i) >= r.p.Int("max_holding_period")
}

func (r *liquidityRules) SoftExit(i int, _ state.PositionState) bool {
	return r.vwapRank[i] < r.p.Float("vwap_exit_threshold") && r.obvShort[i] < r.obvLong[i]
}

func (r *liquidityRules) Entry(i int, _ state.PositionState) state.Side {
	liquid := r.avgDollar[i] > r.p.Float("dollar_volume_threshold")
	strong := r.vwapRank[i] > r.p.Float("vwap_percentile_threshold")
	accumulation := r.obvShort[i] > r.obvLong[i]
	if liquid && strong && accumulation && r.momentum[i] > r.p.Float("momentum_threshold") {
		return state.Long
	}
	return state.Flat
}
