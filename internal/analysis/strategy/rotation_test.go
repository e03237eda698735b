package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/skalibog/bfsignals/pkg/models"
)

// panel таблица нескольких символов: на каждую дату по строке на символ
// в порядке symbols
type panel struct {
	symbols []string
	frame   *models.Frame
}

func newPanel(dates []time.Time, symbols []string, cols map[string]func(sym string, d int) float64) panel {
	n := len(dates) * len(symbols)
	f := models.NewFrame(make([]time.Time, 0, n), make([]string, 0, n))
	for name := range cols {
		f.Columns[name] = make([]float64, 0, n)
	}
	for d, at := range dates {
		for _, sym := range symbols {
			f.Time = append(f.Time, at)
			f.Symbol = append(f.Symbol, sym)
			for name, fn := range cols {
				f.Columns[name] = append(f.Columns[name], fn(sym, d))
			}
		}
	}
	return panel{symbols: symbols, frame: f}
}

// row номер строки символа на дату
func (p panel) row(sym string, d int) int {
	for k, s := range p.symbols {
		if s == sym {
			return d*len(p.symbols) + k
		}
	}
	return -1
}

// signalsOf ненулевые сигналы символа по номеру даты
func (p panel) signalsOf(sym string, signals []float64) map[int]float64 {
	out := make(map[int]float64)
	for i, v := range signals {
		if v != 0 && p.frame.Symbol[i] == sym {
			out[i/len(p.symbols)] = v
		}
	}
	return out
}

func monthlyDates(n int) []time.Time {
	out := make([]time.Time, n)
	for k := range out {
		out[k] = time.Date(2023, time.January+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func momentumPrice(sym string, k int) float64 {
	switch sym {
	case "A":
		// рост 5% в месяц, с восьмого месяца без изменений
		return 100 * math.Pow(1.05, math.Min(float64(k), 7))
	case "B":
		// рост 2% в месяц, с восьмого месяца 10%
		if k <= 7 {
			return 100 * math.Pow(1.02, float64(k))
		}
		return 100 * math.Pow(1.02, 7) * math.Pow(1.10, float64(k-7))
	}
	return 100 * math.Pow(0.99, float64(k))
}

func TestTopMomentumRotatesLeader(t *testing.T) {
	p := newPanel(monthlyDates(15), []string{"A", "B", "C"}, map[string]func(string, int) float64{
		models.ColClose: momentumPrice,
	})
	s, err := NewTopMomentum(map[string]interface{}{
		"momentum_period":     6,
		"holding_period":      12,
		"top_n_stocks":        1,
		"rebalance_frequency": 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	signals, err := s.GenerateSignals(p.frame)
	if err != nil {
		t.Fatal(err)
	}

	a, b, c := p.signalsOf("A", signals), p.signalsOf("B", signals), p.signalsOf("C", signals)
	if len(a) != 2 || a[1] != 1 || a[9] != -1 {
		t.Errorf("A: ожидались вход на 1 и выход на 9, получено %v", a)
	}
	if len(b) != 1 || b[9] != 1 {
		t.Errorf("B: ожидался вход на 9, получено %v", b)
	}
	if len(c) != 0 {
		t.Errorf("C: неожиданные сигналы %v", c)
	}

	size := s.PositionSizing(p.frame, signals)
	if got := size[p.row("B", 9)]; got != 1 {
		t.Errorf("вес B на дату ротации %v", got)
	}
	if got := size[p.row("A", 0)]; got != 0 {
		t.Errorf("вес без позиций %v", got)
	}
}

func TestTopMomentumExitsAfterHoldingPeriod(t *testing.T) {
	p := newPanel(monthlyDates(15), []string{"A", "B", "C"}, map[string]func(string, int) float64{
		models.ColClose: momentumPrice,
	})
	s, _ := NewTopMomentum(map[string]interface{}{
		"momentum_period":     6,
		"holding_period":      1,
		"top_n_stocks":        1,
		"rebalance_frequency": 12,
	})
	signals, _ := s.GenerateSignals(p.frame)

	// A куплен на первом месяце и продан через месяц, хотя следующая
	// ребалансировка только на тринадцатом
	if a := p.signalsOf("A", signals); len(a) != 2 || a[1] != 1 || a[2] != -1 {
		t.Errorf("A: ожидались вход на 1 и выход на 2, получено %v", a)
	}
	if b := p.signalsOf("B", signals); len(b) != 2 || b[13] != 1 || b[14] != -1 {
		t.Errorf("B: ожидались вход на 13 и выход на 14, получено %v", b)
	}
	if c := p.signalsOf("C", signals); len(c) != 0 {
		t.Errorf("C: неожиданные сигналы %v", c)
	}
}

func TestBreadthRotationExitsOnWeakBreadth(t *testing.T) {
	dates := make([]time.Time, 60)
	for d := range dates {
		dates[d] = start.AddDate(0, 0, d)
	}
	weak := func(d int) bool { return d >= 45 }
	p := newPanel(dates, []string{"X", "Y"}, map[string]func(string, int) float64{
		models.ColClose: func(sym string, d int) float64 {
			if sym == "X" {
				return 100 * math.Pow(1.01, float64(d))
			}
			return 100 * math.Pow(1.005, float64(d))
		},
		models.ColAdvances: func(_ string, d int) float64 {
			if weak(d) {
				return 800
			}
			return 2000
		},
		models.ColDeclines: func(string, int) float64 { return 1000 },
		models.ColNewHighs: func(string, int) float64 { return 100 },
		models.ColNewLows:  func(string, int) float64 { return 50 },
	})

	s, err := NewBreadthRotation(map[string]interface{}{
		"ma_period":             20,
		"rs_period":             30,
		"rebalance_frequency":   5,
		"top_sectors":           1,
		"negative_breadth_days": 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	signals, err := s.GenerateSignals(p.frame)
	if err != nil {
		t.Fatal(err)
	}

	x := p.signalsOf("X", signals)
	if len(x) != 2 || x[30] != 1 || x[46] != -1 {
		t.Errorf("X: ожидались вход на 30 и выход на 46, получено %v", x)
	}
	if y := p.signalsOf("Y", signals); len(y) != 0 {
		t.Errorf("Y: неожиданные сигналы %v", y)
	}

	s.Reset()
	again, _ := s.GenerateSignals(p.frame)
	for i := range signals {
		if signals[i] != again[i] {
			t.Fatalf("после Reset сигналы различаются на строке %d", i)
		}
	}
}
