package strategy

import (
	"testing"
	"time"

	"github.com/skalibog/bfsignals/pkg/models"
)

func gapUpFrame() *models.Frame {
	const n = 13
	times := make([]time.Time, n)
	symbols := make([]string, n)
	open := make([]float64, n)
	high := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = start.AddDate(0, 0, i)
		symbols[i] = "S"
		open[i], high[i], closes[i] = 100, 101, 100
	}
	// гэп вверх с пробоем верхней полосы
	open[11], high[11], closes[11] = 102, 105, 103
	open[12], high[12], closes[12] = 106, 110, 107

	f := models.NewFrame(times, symbols)
	f.Columns[models.ColOpen] = open
	f.Columns[models.ColHigh] = high
	f.Columns[models.ColClose] = closes
	return f
}

func TestGapUpBollingerExitOnly(t *testing.T) {
	f := gapUpFrame()
	s, err := NewGapUpBollinger(map[string]interface{}{"bollinger_period": 10})
	if err != nil {
		t.Fatal(err)
	}
	signals, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := nonZero(signals); len(got) != 1 || got[11] != -1 {
		t.Fatalf("ожидался один выход на 11, получено %v", got)
	}
	if sum(s.EntryRules(f, signals)) != 0 {
		t.Error("стратегия не должна давать входов")
	}
	if exits := s.ExitRules(f, signals); exits[11] != 1 || sum(exits) != 1 {
		t.Errorf("выходы %v", exits)
	}

	// позиция закрыта и не открывается повторно до Reset
	again, _ := s.GenerateSignals(f)
	if got := nonZero(again); len(got) != 0 {
		t.Errorf("повторный прогон без Reset: %v", got)
	}
	s.Reset()
	again, _ = s.GenerateSignals(f)
	if got := nonZero(again); len(got) != 1 || got[11] != -1 {
		t.Errorf("после Reset: %v", got)
	}
}

func TestWeeklyBollingerBreakout(t *testing.T) {
	closes := make([]float64, 52)
	for i := range closes {
		closes[i] = 100
	}
	closes[50], closes[51] = 120, 90
	times := make([]time.Time, len(closes))
	for i := range times {
		times[i] = start.AddDate(0, 0, 7*i)
	}
	f := models.NewFrame(times, nil)
	f.Columns[models.ColClose] = closes

	s, _ := NewWeeklyBollinger(map[string]interface{}{"bollinger_period": 10, "ma_period": 50})
	signals, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := nonZero(signals); len(got) != 2 || got[50] != 1 || got[51] != -1 {
		t.Errorf("ожидались вход на 50 и выход на 51, получено %v", got)
	}
}

func TestWeeklyOnlineMatchesBatch(t *testing.T) {
	w, err := NewWeeklyOnline(map[string]interface{}{"bollinger_period": 10, "ma_period": 50})
	if err != nil {
		t.Fatal(err)
	}
	price := func(k int) float64 {
		switch k {
		case 50:
			return 120
		case 51:
			return 90
		}
		return 100
	}

	var got []*WeeklySignal
	for k := 0; k < 52; k++ {
		at := start.AddDate(0, 0, 7*k).Add(12 * time.Hour)
		// два тика в неделю, закрытие недели по второму
		if sig, ok := w.OnTick("BTCUSDT", price(k)-1, 1, at); ok {
			got = append(got, sig)
		}
		if sig, ok := w.OnTick("BTCUSDT", price(k), 1, at.Add(48*time.Hour)); ok {
			got = append(got, sig)
		}
	}
	if sig, ok := w.Flush("BTCUSDT"); ok {
		got = append(got, sig)
	}

	if len(got) != 2 {
		t.Fatalf("ожидалось 2 сигнала, получено %d", len(got))
	}
	entry, exit := got[0], got[1]
	if entry.Signal != 1 || entry.Week.Close != 120 || !entry.Week.OpenTime.Equal(start.AddDate(0, 0, 350)) {
		t.Errorf("вход: %+v, неделя %+v", entry, entry.Week)
	}
	if exit.Signal != -1 || exit.Week.Close != 90 {
		t.Errorf("выход: %+v, неделя %+v", exit, exit.Week)
	}

	w.Reset()
	if _, ok := w.Flush("BTCUSDT"); ok {
		t.Error("после Reset незавершенных недель быть не должно")
	}
}
