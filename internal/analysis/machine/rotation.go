package machine

import (
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/pkg/models"
)

// Selection результат отбора на дату
type Selection struct {
	Rebalance bool            // дата ребалансировки: держим только Top
	Top       map[string]bool // символы, которые должны быть в портфеле
}

// Rotator правила стратегии ротации. Индексы row - строки таблицы.
type Rotator interface {
	Available(row int) bool
	ForcedExit(row int, st state.PositionState) bool
	SoftExit(row int, st state.PositionState) bool
	// Select отбирает символы на дату с порядковым номером date.
	// held - символы с открытой позицией после проверки выходов.
	Select(date int, rows []int, held map[string]bool) Selection
}

// ScanDates прогоняет автомат по датам таблицы, отсортированной по времени.
// Для каждой даты: принудительные и мягкие выходы, выходы по ротации,
// затем входы в отобранные символы без позиции.
func ScanDates(r Rotator, f *models.Frame, store *state.Store) []float64 {
	out := make([]float64, f.Len())
	if f.Len() == 0 {
		return out
	}
	quotes := Quotes(f, nil)
	observer, _ := r.(Observer)

	dates := f.Dates()
	for d, rows := range dates {
		held := make(map[string]bool)
		for _, row := range rows {
			sym := f.SymbolAt(row)
			st := store.GetOrCreate(sym)
			if !r.Available(row) {
				continue
			}
			if observer != nil {
				st = observer.Observe(row, st)
			}
			if !st.Flat() {
				side := st.Side
				st = st.Track(quotes[row].High, quotes[row].Low)
				if r.ForcedExit(row, st) || r.SoftExit(row, st) {
					out[row] = -side.Sign()
					st = st.Exit()
				} else {
					held[sym] = true
				}
			}
			store.Put(sym, st)
		}

		sel := r.Select(d, rows, held)
		for _, row := range rows {
			sym := f.SymbolAt(row)
			if out[row] != 0 || !r.Available(row) {
				continue
			}
			st := store.GetOrCreate(sym)
			switch {
			case held[sym] && sel.Rebalance && !sel.Top[sym]:
				out[row] = -st.Side.Sign()
				store.Put(sym, st.Exit())
			case st.Flat() && sel.Top[sym]:
				st = st.Enter(state.Long, d, quotes[row].Close, quotes[row].Time).Track(quotes[row].High, quotes[row].Low)
				out[row] = st.Side.Sign()
				store.Put(sym, st)
			}
		}
	}
	// номера дат следующего прогона начинаются с нуля
	for _, sym := range store.Symbols() {
		store.Put(sym, store.GetOrCreate(sym).Rebase(len(dates)))
	}
	return out
}
