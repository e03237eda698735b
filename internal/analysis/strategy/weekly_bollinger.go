package strategy

import (
	"math"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/internal/stream"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
)

const NameWeeklyBollinger = "weekly_bollinger"

// WeeklyBollinger вход при закрытии недели выше верхней полосы Боллинджера,
// выход при закрытии ниже длинной скользящей средней. Таблица должна
// содержать недельные бары.
type WeeklyBollinger struct {
	base
}

func weeklyBollingerSchema() Schema {
	return Schema{
		"bollinger_period": intParam(50, 10, 100, "Период полос Боллинджера"),
		"bollinger_std":    floatParam(2, 1, 3, "Ширина полос в стандартных отклонениях"),
		"ma_period":        intParam(200, 50, 500, "Период скользящей средней для выхода"),
		"position_size":    positionSizeParam,
	}
}

func NewWeeklyBollinger(overrides map[string]interface{}) (*WeeklyBollinger, error) {
	b, err := newBase(NameWeeklyBollinger,
		"Недельный пробой полос Боллинджера: вход при закрытии недели выше "+
			"верхней полосы, выход при закрытии ниже длинной скользящей средней.",
		weeklyBollingerSchema(), overrides, models.ColClose)
	if err != nil {
		return nil, err
	}
	return &WeeklyBollinger{base: b}, nil
}

func (s *WeeklyBollinger) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		closes := sub.Column(models.ColClose)
		bands := technical.Bollinger(closes, p.Int("bollinger_period"), p.Float("bollinger_std"))
		return &breakoutRules{
			warmup: weeklyWarmup(p),
			closes: closes,
			upper:  bands.Upper,
			ma:     technical.SMA(closes, p.Int("ma_period")),
		}
	})
}

func weeklyWarmup(p Params) int {
	w := p.Int("bollinger_period")
	if m := p.Int("ma_period"); m > w {
		w = m
	}
	return w - 1
}

// breakoutRules вход выше верхней полосы, выход ниже средней
type breakoutRules struct {
	warmup int
	closes []float64
	upper  []float64
	ma     []float64
}

func (r *breakoutRules) Warmup() int { return r.warmup }

func (r *breakoutRules) Available(i int) bool {
	return technical.AllAvailable(r.closes[i], r.upper[i], r.ma[i])
}

func (r *breakoutRules) ForcedExit(int, state.PositionState) bool { return false }

func (r *breakoutRules) SoftExit(i int, _ state.PositionState) bool {
	return r.closes[i] < r.ma[i]
}

func (r *breakoutRules) Entry(i int, _ state.PositionState) state.Side {
	if r.closes[i] > r.upper[i] {
		return state.Long
	}
	return state.Flat
}

// WeeklySignal сигнал, сформированный по завершенной неделе
type WeeklySignal struct {
	Symbol string
	Week   *models.Candle
	Signal float64
}

// WeeklyOnline потоковый вариант WeeklyBollinger: тики собираются в
// недельные свечи, по каждой завершенной неделе правила проверяются
// на кольцевом буфере последних недельных закрытий
type WeeklyOnline struct {
	strategy *WeeklyBollinger
	builder  *stream.Builder
	capacity int
	weeks    map[string]int
}

// NewWeeklyOnline создает потоковую стратегию
func NewWeeklyOnline(overrides map[string]interface{}) (*WeeklyOnline, error) {
	s, err := NewWeeklyBollinger(overrides)
	if err != nil {
		return nil, err
	}
	return &WeeklyOnline{
		strategy: s,
		builder:  stream.NewBuilder(stream.IntervalWeek),
		capacity: weeklyWarmup(s.params) + 1,
		weeks:    make(map[string]int),
	}, nil
}

// OnTick учитывает тик. Сигнал возвращается только при завершении
// недели и срабатывании правила.
func (w *WeeklyOnline) OnTick(symbol string, price, volume float64, t time.Time) (*WeeklySignal, bool) {
	week, done := w.builder.Add(symbol, price, volume, t)
	if !done {
		return nil, false
	}
	return w.onWeek(week)
}

// Flush закрывает текущую неделю символа, например при остановке потока
func (w *WeeklyOnline) Flush(symbol string) (*WeeklySignal, bool) {
	week, ok := w.builder.Flush(symbol)
	if !ok {
		return nil, false
	}
	return w.onWeek(week)
}

func (w *WeeklyOnline) onWeek(week *models.Candle) (*WeeklySignal, bool) {
	p := w.strategy.params
	store := w.strategy.store
	ring := store.Buffer(week.Symbol, models.ColClose, w.capacity)
	ring.Push(week.Close)
	i := w.weeks[week.Symbol]
	w.weeks[week.Symbol] = i + 1

	rules := &weekRules{close: week.Close, upper: math.NaN(), ma: math.NaN()}
	if ring.Full() {
		closes := ring.Values()
		last := len(closes) - 1
		rules.upper = technical.Bollinger(closes, p.Int("bollinger_period"), p.Float("bollinger_std")).Upper[last]
		rules.ma = technical.SMA(closes, p.Int("ma_period"))[last]
	}

	q := machine.Quote{Time: week.OpenTime, Open: week.Open, High: week.High, Low: week.Low, Close: week.Close}
	v, st := machine.Step(rules, i, q, store.GetOrCreate(week.Symbol))
	store.Put(week.Symbol, st)
	if v == 0 {
		return nil, false
	}
	logger.Debug("недельный сигнал",
		zap.String("symbol", week.Symbol),
		zap.Float64("close", week.Close),
		zap.Float64("signal", v))
	return &WeeklySignal{Symbol: week.Symbol, Week: week, Signal: v}, true
}

// weekRules правила WeeklyBollinger для одной завершенной недели
type weekRules struct {
	close, upper, ma float64
}

func (r *weekRules) Warmup() int { return 0 }

func (r *weekRules) Available(int) bool {
	return technical.AllAvailable(r.close, r.upper, r.ma)
}

func (r *weekRules) ForcedExit(int, state.PositionState) bool { return false }

func (r *weekRules) SoftExit(int, state.PositionState) bool { return r.close < r.ma }

func (r *weekRules) Entry(int, state.PositionState) state.Side {
	if r.close > r.upper {
		return state.Long
	}
	return state.Flat
}

// Reset сбрасывает позиции и накопленные недели
func (w *WeeklyOnline) Reset() {
	w.strategy.Reset()
	w.builder = stream.NewBuilder(stream.IntervalWeek)
	w.weeks = make(map[string]int)
}
