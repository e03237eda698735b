package strategy

import (
	"sort"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/rules"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameTopMomentum = "top_momentum"

// TopMomentum раз в rebalance_frequency месяцев покупает top_n_stocks
// символов с наибольшей доходностью за momentum_period месяцев. Позиция
// закрывается через holding_period месяцев или при выбывании из списка.
type TopMomentum struct {
	base
	lastRebalance time.Time
}

func topMomentumSchema() Schema {
	return Schema{
		"momentum_period":     intParam(12, 6, 24, "Период доходности в месяцах"),
		"holding_period":      intParam(3, 1, 12, "Срок удержания в месяцах"),
		"top_n_stocks":        intParam(3, 1, 10, "Число отбираемых символов"),
		"rebalance_frequency": intParam(3, 1, 12, "Интервал ребалансировки в месяцах"),
	}
}

func NewTopMomentum(overrides map[string]interface{}) (*TopMomentum, error) {
	b, err := newBase(NameTopMomentum,
		"Импульс лидеров: на каждой ребалансировке отбираются символы с "+
			"наибольшей доходностью за период, выбывшие из списка продаются. "+
			"Веса позиций равные.",
		topMomentumSchema(), overrides, models.ColSymbol, models.ColDate, models.ColClose)
	if err != nil {
		return nil, err
	}
	return &TopMomentum{base: b}, nil
}

func (s *TopMomentum) CrossSectional() {}

func (s *TopMomentum) Reset() {
	s.base.Reset()
	s.lastRebalance = time.Time{}
}

func (s *TopMomentum) GenerateSignals(f *models.Frame) ([]float64, error) {
	return s.scanDates(f, func(sorted *models.Frame) machine.Rotator {
		r := &momentumRotator{
			s:        s,
			f:        sorted,
			closes:   sorted.Column(models.ColClose),
			dates:    sorted.Dates(),
			bySymbol: make(map[string][]int),
		}
		for _, g := range sorted.Groups() {
			r.bySymbol[g.Symbol] = g.Rows
			r.symbols = append(r.symbols, g.Symbol)
		}
		return r
	})
}

func (s *TopMomentum) PositionSizing(f *models.Frame, signals []float64) []float64 {
	return rules.EqualWeight(f.Symbol, signals)
}

type momentumRotator struct {
	s        *TopMomentum
	f        *models.Frame
	closes   []float64
	dates    [][]int
	bySymbol map[string][]int
	symbols  []string
}

func (r *momentumRotator) Available(row int) bool { return technical.Available(r.closes[row]) }

func (r *momentumRotator) ForcedExit(row int, st state.PositionState) bool {
	return monthsBetween(st.EntryTime, r.f.TimeAt(row)) >= r.s.params.Int("holding_period")
}

func (r *momentumRotator) SoftExit(int, state.PositionState) bool { return false }

func (r *momentumRotator) Select(date int, _ []int, _ map[string]bool) machine.Selection {
	p := r.s.params
	now := r.f.TimeAt(r.dates[date][0])
	if !r.s.lastRebalance.IsZero() && monthsBetween(r.s.lastRebalance, now) < p.Int("rebalance_frequency") {
		return machine.Selection{}
	}

	type candidate struct {
		symbol string
		ret    float64
	}
	from := now.AddDate(0, -p.Int("momentum_period"), 0)
	var cands []candidate
	for _, sym := range r.symbols {
		if ret, ok := r.trailingReturn(sym, from, now); ok {
			cands = append(cands, candidate{sym, ret})
		}
	}
	n := p.Int("top_n_stocks")
	if len(cands) < n {
		return machine.Selection{}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].ret > cands[b].ret })

	top := make(map[string]bool, n)
	for _, c := range cands[:n] {
		top[c.symbol] = true
	}
	r.s.lastRebalance = now
	return machine.Selection{Rebalance: true, Top: top}
}

// trailingReturn доходность символа в процентах между первым и последним
// наблюдением в окне [from, to]. Нужно не меньше двух наблюдений.
func (r *momentumRotator) trailingReturn(symbol string, from, to time.Time) (float64, bool) {
	rows := r.bySymbol[symbol]
	lo := sort.Search(len(rows), func(k int) bool { return !r.f.TimeAt(rows[k]).Before(from) })
	hi := sort.Search(len(rows), func(k int) bool { return r.f.TimeAt(rows[k]).After(to) })
	if hi-lo < 2 {
		return 0, false
	}
	first, last := r.closes[rows[lo]], r.closes[rows[hi-1]]
	if !technical.AllAvailable(first, last) || first == 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}
