package strategy

import (
	"math"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
)

const NamePairsMeanReversion = "pairs_mean_reversion"

// PairsMeanReversion торговля возвратом спреда A - beta·B к среднему.
// Вторая нога пары берется из колонки pair_close. Сигнал +1 - покупка
// спреда, -1 - продажа; выход равен минус текущей позиции.
type PairsMeanReversion struct {
	base
}

func pairsSchema() Schema {
	return Schema{
		"lookback_window":    intParam(90, 30, 200, "Окно Z-оценки спреда"),
		"z_score_entry":      floatParam(2, 1, 5, "Порог |Z| для входа"),
		"z_score_exit":       floatParam(0.5, 0.1, 2, "Порог |Z| для выхода"),
		"z_score_stop":       floatParam(4, 2, 10, "Стоп по |Z|"),
		"max_holding_period": intParam(40, 10, 100, "Максимальное удержание в барах"),
		"min_correlation":    floatParam(0.7, 0.3, 0.99, "Минимальная корреляция ног пары"),
		"cointegration_test": boolParam(true, "Проверять коинтеграцию тестом Дики-Фуллера"),
		"position_size":      positionSizeParam,
	}
}

func NewPairsMeanReversion(overrides map[string]interface{}) (*PairsMeanReversion, error) {
	b, err := newBase(NamePairsMeanReversion,
		"Статистический арбитраж пары: спред A - beta·B, вход при выходе Z-оценки "+
			"за порог, выход при возврате к среднему, по стопу или по времени. "+
			"Торговля только при достаточной корреляции и коинтеграции.",
		pairsSchema(), overrides, models.ColClose, models.ColPairClose)
	if err != nil {
		return nil, err
	}
	return &PairsMeanReversion{base: b}, nil
}

func (s *PairsMeanReversion) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		a := sub.Column(models.ColClose)
		b := sub.Column(models.ColPairClose)
		r := &pairsRules{p: p, z: make([]float64, len(a))}
		if !s.tradable(sub, a, b) {
			// без торговли: все индикаторы недоступны
			for i := range r.z {
				r.z[i] = math.NaN()
			}
			return r
		}
		r.beta = technical.OLSBeta(a, b)
		r.z = technical.ZScore(technical.Spread(a, b, r.beta), p.Int("lookback_window"))
		return r
	})
}

// tradable проверяет корреляцию и коинтеграцию ног пары
func (s *PairsMeanReversion) tradable(sub *models.Frame, a, b []float64) bool {
	symbol := sub.SymbolAt(0)
	if len(a) < s.params.Int("lookback_window") {
		return false
	}
	corr := technical.Correlation(a, b)
	if !technical.Available(corr) || corr < s.params.Float("min_correlation") {
		logger.Debug("пара отклонена по корреляции",
			zap.String("symbol", symbol), zap.Float64("correlation", corr))
		return false
	}
	if s.params.Bool("cointegration_test") {
		if ok, _ := technical.Cointegrated(a, b); !ok {
			logger.Debug("пара не коинтегрирована", zap.String("symbol", symbol))
			return false
		}
	}
	return true
}

type pairsRules struct {
	p    Params
	beta float64
	z    []float64
}

func (r *pairsRules) Warmup() int { return r.p.Int("lookback_window") - 1 }

func (r *pairsRules) Available(i int) bool { return technical.Available(r.z[i]) }

func (r *pairsRules) ForcedExit(i int, st state.PositionState) bool {
	return math.Abs(r.z[i]) > r.p.Float("z_score_stop") ||
		st.Held(i) >= r.p.Int("max_holding_period")
}

func (r *pairsRules) SoftExit(i int, _ state.PositionState) bool {
	return math.Abs(r.z[i]) < r.p.Float("z_score_exit")
}

func (r *pairsRules) Entry(i int, _ state.PositionState) state.Side {
	switch entry := r.p.Float("z_score_entry"); {
	case r.z[i] < -entry:
		return state.Long
	case r.z[i] > entry:
		return state.Short
	}
	return state.Flat
}

// Seed сохраняет хедж-коэффициент открытой позиции
func (r *pairsRules) Seed(_ int, st state.PositionState) state.PositionState {
	st.HedgeRatio = r.beta
	return st
}
