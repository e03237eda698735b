// Package machine реализует конечный автомат сигналов: для каждого бара
// по порядку проверяются принудительные выходы, мягкие выходы и входы.
package machine

import (
	"math"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/pkg/models"
)

// Quote цены бара, нужные автомату
type Quote struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Quotes извлекает котировки строк rows таблицы. При nil берутся все строки.
// Отсутствующие open/high/low заменяются ценой закрытия, отсутствующая
// цена закрытия дает NaN.
func Quotes(f *models.Frame, rows []int) []Quote {
	if rows == nil {
		rows = make([]int, f.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	closes := f.Column(models.ColClose)
	pick := func(col string) []float64 {
		if f.Has(col) {
			return f.Column(col)
		}
		return closes
	}
	opens, highs, lows := pick(models.ColOpen), pick(models.ColHigh), pick(models.ColLow)

	out := make([]Quote, len(rows))
	for k, row := range rows {
		out[k] = Quote{
			Time:  f.TimeAt(row),
			Open:  value(opens, row),
			High:  value(highs, row),
			Low:   value(lows, row),
			Close: value(closes, row),
		}
	}
	return out
}

func value(col []float64, row int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[row]
}

// Evaluator правила стратегии для одного символа. Индекс i локален
// для ряда символа.
type Evaluator interface {
	// Warmup первый индекс, с которого могут появляться сигналы
	Warmup() int
	// Available сообщает, определены ли все индикаторы на баре i
	Available(i int) bool
	// ForcedExit стоп по волатильности, по времени или слом тренда
	ForcedExit(i int, st state.PositionState) bool
	// SoftExit выход по ослаблению условий
	SoftExit(i int, st state.PositionState) bool
	// Entry направление входа или state.Flat
	Entry(i int, st state.PositionState) state.Side
}

// Seeder дополняет состояние при входе (например, хедж-коэффициентом)
type Seeder interface {
	Seed(i int, st state.PositionState) state.PositionState
}

// Observer обновляет счетчики состояния на каждом доступном баре
// до проверки выходов
type Observer interface {
	Observe(i int, st state.PositionState) state.PositionState
}

// Step обрабатывает один бар и возвращает сигнал и новое состояние
func Step(ev Evaluator, i int, q Quote, st state.PositionState) (float64, state.PositionState) {
	if i < ev.Warmup() || !ev.Available(i) {
		return 0, st
	}
	if o, ok := ev.(Observer); ok {
		st = o.Observe(i, st)
	}

	if !st.Flat() {
		side := st.Side
		st = st.Track(q.High, q.Low)
		if ev.ForcedExit(i, st) || ev.SoftExit(i, st) {
			return -side.Sign(), st.Exit()
		}
		return 0, st
	}

	side := ev.Entry(i, st)
	if side == state.Flat {
		return 0, st
	}
	st = st.Enter(side, i, q.Close, q.Time).Track(q.High, q.Low)
	if s, ok := ev.(Seeder); ok {
		st = s.Seed(i, st)
	}
	return side.Sign(), st
}

// Scan прогоняет автомат по всем барам символа, сохраняя итоговое
// состояние в store. Индекс входа в сохраненном состоянии отсчитывается
// от первого бара следующего прогона.
func Scan(ev Evaluator, quotes []Quote, store *state.Store, symbol string) []float64 {
	out := make([]float64, len(quotes))
	st := store.GetOrCreate(symbol)
	for i, q := range quotes {
		out[i], st = Step(ev, i, q, st)
	}
	store.Put(symbol, st.Rebase(len(quotes)))
	return out
}
