package strategy

import (
	"sort"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/rules"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameBreadthRotation = "breadth_rotation"

// знаменатель отношения роста к падению не обращается в ноль
const adEpsilon = 1e-8

// BreadthRotation ротация секторов при подтверждении ширины рынка.
// Колонки advances, declines, new_highs и new_lows общие для рынка
// и повторяются в строке каждого сектора.
type BreadthRotation struct {
	base
	dates         int
	lastRebalance int
}

func breadthRotationSchema() Schema {
	return Schema{
		"ad_ratio_threshold":    floatParam(1, 0.5, 2, "Порог отношения роста к падению для входа"),
		"ad_ratio_exit":         floatParam(0.9, 0.5, 1.5, "Порог отношения роста к падению для выхода"),
		"net_highs_threshold":   intParam(0, -100, 100, "Порог чистых новых максимумов"),
		"rs_period":             intParam(90, 30, 200, "Период относительной силы"),
		"ma_period":             intParam(50, 20, 100, "Период скользящей средней тренда"),
		"top_sectors":           intParam(2, 1, 5, "Число отбираемых секторов"),
		"rebalance_frequency":   intParam(20, 5, 50, "Интервал ребалансировки в датах"),
		"negative_breadth_days": intParam(3, 1, 10, "Дней слабой ширины рынка до выхода"),
		"position_size":         positionSizeParam,
	}
}

func NewBreadthRotation(overrides map[string]interface{}) (*BreadthRotation, error) {
	b, err := newBase(NameBreadthRotation,
		"Ротация по ширине рынка: при росте большинства бумаг и перевесе новых "+
			"максимумов покупаются сильнейшие сектора выше своей средней. Выход "+
			"при ослаблении ширины рынка несколько дней подряд или при закрытии "+
			"ниже средней.",
		breadthRotationSchema(), overrides,
		models.ColSymbol, models.ColClose,
		models.ColAdvances, models.ColDeclines, models.ColNewHighs, models.ColNewLows)
	if err != nil {
		return nil, err
	}
	return &BreadthRotation{base: b, lastRebalance: -1}, nil
}

func (s *BreadthRotation) CrossSectional() {}

func (s *BreadthRotation) Reset() {
	s.base.Reset()
	s.dates = 0
	s.lastRebalance = -1
}

func (s *BreadthRotation) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanDates(f, func(sorted *models.Frame) machine.Rotator {
		n := sorted.Len()
		r := &breadthRotator{
			s:        s,
			f:        sorted,
			closes:   sorted.Column(models.ColClose),
			adRatio:  make([]float64, n),
			netHighs: make([]float64, n),
			ma:       make([]float64, n),
			rs:       make([]float64, n),
		}
		adv, dec := sorted.Column(models.ColAdvances), sorted.Column(models.ColDeclines)
		highs, lows := sorted.Column(models.ColNewHighs), sorted.Column(models.ColNewLows)
		for i := 0; i < n; i++ {
			r.adRatio[i] = adv[i] / (dec[i] + adEpsilon)
			r.netHighs[i] = highs[i] - lows[i]
		}

		for _, g := range sorted.Groups() {
			closes := sorted.Subset(g.Rows).Column(models.ColClose)
			ma := technical.SMA(closes, p.Int("ma_period"))
			rs := technical.Momentum(closes, p.Int("rs_period"))
			for k, row := range g.Rows {
				r.ma[row] = ma[k]
				r.rs[row] = rs[k]
			}
		}
		return r
	})
}

func (s *BreadthRotation) PositionSizing(f *models.Frame, signals []float64) []float64 {
	return rules.EqualWeight(f.Symbol, signals)
}

type breadthRotator struct {
	s        *BreadthRotation
	f        *models.Frame
	closes   []float64
	adRatio  []float64
	netHighs []float64
	ma       []float64
	rs       []float64
}

func (r *breadthRotator) Available(row int) bool {
	return technical.AllAvailable(r.closes[row], r.ma[row], r.adRatio[row], r.netHighs[row])
}

// Observe считает подряд идущие даты со слабой шириной рынка
func (r *breadthRotator) Observe(row int, st state.PositionState) state.PositionState {
	p := r.s.params
	if r.adRatio[row] < p.Float("ad_ratio_exit") || r.netHighs[row] < float64(p.Int("net_highs_threshold")) {
		st.Streak++
	} else {
		st.Streak = 0
	}
	return st
}

func (r *breadthRotator) ForcedExit(row int, st state.PositionState) bool {
	return st.Streak >= r.s.params.Int("negative_breadth_days") || r.closes[row] < r.ma[row]
}

func (r *breadthRotator) SoftExit(int, state.PositionState) bool { return false }

func (r *breadthRotator) Select(_ int, rows []int, held map[string]bool) machine.Selection {
	p := r.s.params
	date := r.s.dates
	r.s.dates++

	due := len(held) == 0 || r.s.lastRebalance < 0 || date-r.s.lastRebalance >= p.Int("rebalance_frequency")
	if !due || !r.healthy(rows) {
		return machine.Selection{}
	}

	type candidate struct {
		symbol string
		rs     float64
	}
	var cands []candidate
	for _, row := range rows {
		if !r.Available(row) || !technical.Available(r.rs[row]) || r.closes[row] <= r.ma[row] {
			continue
		}
		cands = append(cands, candidate{r.f.SymbolAt(row), r.rs[row]})
	}
	if len(cands) == 0 {
		return machine.Selection{}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].rs > cands[b].rs })
	if k := p.Int("top_sectors"); len(cands) > k {
		cands = cands[:k]
	}

	top := make(map[string]bool, len(cands))
	for _, c := range cands {
		top[c.symbol] = true
	}
	r.s.lastRebalance = date
	return machine.Selection{Rebalance: true, Top: top}
}

// healthy ширина рынка на дату берется из первой строки с данными
func (r *breadthRotator) healthy(rows []int) bool {
	p := r.s.params
	for _, row := range rows {
		if !technical.AllAvailable(r.adRatio[row], r.netHighs[row]) {
			continue
		}
		return r.adRatio[row] > p.Float("ad_ratio_threshold") &&
			r.netHighs[row] > float64(p.Int("net_highs_threshold"))
	}
	return false
}
