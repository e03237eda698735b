package strategy

import (
	"math"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/rules"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameGapUpBollinger = "gapup_bollinger"

// GapUpBollinger правило выхода для уже открытых позиций: выход при
// открытии с гэпом вверх и максимуме выше верхней полосы Боллинджера.
// Каждый символ считается купленным при первом появлении, входов
// стратегия не генерирует.
type GapUpBollinger struct {
	base
}

func gapUpSchema() Schema {
	return Schema{
		"bollinger_period": intParam(50, 10, 100, "Период полос Боллинджера"),
		"bollinger_std":    floatParam(2, 1, 3, "Ширина полос в стандартных отклонениях"),
		"position_size":    positionSizeParam,
	}
}

func NewGapUpBollinger(overrides map[string]interface{}) (*GapUpBollinger, error) {
	b, err := newBase(NameGapUpBollinger,
		"Выход по гэпу вверх: позиция закрывается, когда бар открывается выше "+
			"предыдущего закрытия, а максимум превышает верхнюю полосу Боллинджера.",
		gapUpSchema(), overrides,
		models.ColSymbol, models.ColDate, models.ColOpen, models.ColHigh, models.ColClose)
	if err != nil {
		return nil, err
	}
	return &GapUpBollinger{base: b}, nil
}

func (s *GapUpBollinger) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		n := sub.Len()
		r := &gapUpRules{
			open:      sub.Column(models.ColOpen),
			high:      sub.Column(models.ColHigh),
			prevClose: make([]float64, n),
			upper:     make([]float64, n),
		}
		if n == 0 {
			return r
		}

		symbol := sub.SymbolAt(0)
		if !s.store.Has(symbol) {
			s.store.Put(symbol, state.NewPositionState().Enter(state.Long, -1, math.NaN(), sub.TimeAt(0)))
		}

		// буфер сохраняется между вызовами до Reset
		period := p.Int("bollinger_period")
		ring := s.store.Buffer(symbol, models.ColClose, period)
		k := p.Float("bollinger_std")
		closes := sub.Column(models.ColClose)
		for i, c := range closes {
			r.prevClose[i] = ring.Last()
			r.upper[i] = math.NaN()
			if !technical.Available(c) {
				continue
			}
			ring.Push(c)
			if ring.Full() {
				r.upper[i] = ring.Mean() + k*ring.Std()
			}
		}
		return r
	})
}

func (s *GapUpBollinger) EntryRules(f *models.Frame, signals []float64) []float64 {
	return rules.Equals(signals, models.SignalEnter)
}

func (s *GapUpBollinger) ExitRules(f *models.Frame, signals []float64) []float64 {
	return rules.Equals(signals, models.SignalExit)
}

type gapUpRules struct {
	open      []float64
	high      []float64
	prevClose []float64
	upper     []float64
}

func (r *gapUpRules) Warmup() int { return 0 }

func (r *gapUpRules) Available(i int) bool {
	return technical.AllAvailable(r.open[i], r.high[i], r.prevClose[i], r.upper[i])
}

func (r *gapUpRules) ForcedExit(i int, _ state.PositionState) bool {
	return r.open[i] > r.prevClose[i] && r.high[i] > r.upper[i]
}

func (r *gapUpRules) SoftExit(int, state.PositionState) bool { return false }

func (r *gapUpRules) Entry(int, state.PositionState) state.Side { return state.Flat }
