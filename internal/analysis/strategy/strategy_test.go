package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/rules"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/multierr"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// series таблица одного символа с дневными барами
func series(cols map[string][]float64) *models.Frame {
	n := 0
	for _, c := range cols {
		n = len(c)
	}
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.AddDate(0, 0, i)
	}
	f := models.NewFrame(times, nil)
	for name, c := range cols {
		f.Columns[name] = c
	}
	return f
}

// triangle ровный участок, рост и падение
func triangle() []float64 {
	var closes []float64
	for i := 0; i < 60; i++ {
		closes = append(closes, 100)
	}
	for i := 1; i <= 30; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 1; i <= 30; i++ {
		closes = append(closes, 130-3*float64(i))
	}
	return closes
}

func nonZero(signals []float64) map[int]float64 {
	out := make(map[int]float64)
	for i, v := range signals {
		if v != 0 {
			out[i] = v
		}
	}
	return out
}

func TestRegistryBuildsEveryStrategy(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Fatalf("ожидалось 10 стратегий, получено %d: %v", len(names), names)
	}
	for _, name := range names {
		s, err := New(name, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("имя %q, ожидалось %q", s.Name(), name)
		}
		if s.Description() == "" || len(s.RequiredColumns()) == 0 {
			t.Errorf("%s: пустое описание или список колонок", name)
		}
		for pname, spec := range s.ParameterSchema() {
			if spec.Type == TypeBool {
				continue
			}
			v := s.Params().Float(pname)
			if v < spec.Min || v > spec.Max {
				t.Errorf("%s.%s: значение по умолчанию %v вне [%v, %v]", name, pname, v, spec.Min, spec.Max)
			}
		}
	}

	if _, err := New("unknown", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("неизвестная стратегия: %v", err)
	}
	cross, _ := New(NameTopMomentum, nil)
	single, _ := New(NameMACrossover, nil)
	if !IsCrossSectional(cross) || IsCrossSectional(single) {
		t.Error("неверная классификация стратегий")
	}
}

func TestResolveCollectsAllViolations(t *testing.T) {
	_, err := New(NameMACrossover, map[string]interface{}{
		"short_ma_period": 2,
		"long_ma_period":  100.5,
		"unknown":         1,
	})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ошибка не распознается как ErrValidation: %v", err)
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("ожидалось 3 нарушения, получено %d: %v", n, err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Strategy != NameMACrossover {
		t.Errorf("errors.As: %+v", verr)
	}
}

func TestMovingAveragePeriodsOrdered(t *testing.T) {
	for _, name := range []string{NameMACrossover, NameTrendMomentum} {
		for _, periods := range [][2]int{{100, 50}, {50, 50}} {
			_, err := New(name, map[string]interface{}{
				"short_ma_period": periods[0],
				"long_ma_period":  periods[1],
			})
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != "short_ma_period" {
				t.Errorf("%s %v: ошибка %v", name, periods, err)
			}
		}
		if _, err := New(name, map[string]interface{}{"short_ma_period": 49, "long_ma_period": 50}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestResolveAcceptsYAMLNumbers(t *testing.T) {
	s, err := NewTrendMomentum(map[string]interface{}{
		"rsi_period": float64(10),
		"bb_std":     3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Params().Int("rsi_period") != 10 || s.Params().Float("bb_std") != 3 {
		t.Errorf("параметры: %v", s.Params().Map())
	}
	if _, err := NewPairsMeanReversion(map[string]interface{}{"cointegration_test": "yes"}); err == nil {
		t.Error("строка вместо bool должна отклоняться")
	}
}

func TestMACrossoverTriangle(t *testing.T) {
	s, err := NewMACrossover(map[string]interface{}{"short_ma_period": 5, "long_ma_period": 50})
	if err != nil {
		t.Fatal(err)
	}
	f := series(map[string][]float64{models.ColClose: triangle()})
	signals, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != f.Len() {
		t.Fatalf("длина %d, ожидалась %d", len(signals), f.Len())
	}

	got := nonZero(signals)
	if len(got) != 2 || got[60] != 1 {
		t.Fatalf("ожидался вход на 60 и один выход, получено %v", got)
	}
	for i, v := range got {
		if i != 60 && (v != -1 || i <= 90) {
			t.Errorf("неожиданный сигнал %v на %d", v, i)
		}
	}

	entries := s.EntryRules(f, signals)
	exits := s.ExitRules(f, signals)
	if entries[60] != 1 || sum(entries) != 1 || sum(exits) != 1 {
		t.Errorf("входы %v, выходы %v", sum(entries), sum(exits))
	}
	for _, v := range s.PositionSizing(f, signals) {
		if v != 1 {
			t.Fatalf("размер позиции %v", v)
		}
	}
}

func TestMACrossoverKeepsHistoryBeforeGap(t *testing.T) {
	params := map[string]interface{}{"short_ma_period": 5, "long_ma_period": 50}
	clean, _ := NewMACrossover(params)
	gapped, _ := NewMACrossover(params)

	closes := triangle()
	want, err := clean.GenerateSignals(series(map[string][]float64{models.ColClose: closes}))
	if err != nil {
		t.Fatal(err)
	}
	closes[len(closes)-1] = math.NaN()
	got, err := gapped.GenerateSignals(series(map[string][]float64{models.ColClose: closes}))
	if err != nil {
		t.Fatal(err)
	}

	if len(nonZero(want)) != 2 {
		t.Fatalf("без пропуска ожидались вход и выход, получено %v", nonZero(want))
	}
	for i := 0; i < len(closes)-1; i++ {
		if got[i] != want[i] {
			t.Errorf("строка %d: сигнал %v, без пропуска %v", i, got[i], want[i])
		}
	}
	if got[len(got)-1] != 0 {
		t.Errorf("на недоступном баре сигнал %v", got[len(got)-1])
	}
}

func TestGenerateSignalsRepeatsAfterReset(t *testing.T) {
	s, _ := NewMACrossover(map[string]interface{}{"short_ma_period": 5, "long_ma_period": 50})
	f := series(map[string][]float64{models.ColClose: triangle()})
	first, _ := s.GenerateSignals(f)
	s.Reset()
	if s.Store().Len() != 0 {
		t.Fatal("Reset должен очищать состояние")
	}
	second, _ := s.GenerateSignals(f)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("сигналы различаются на %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestShortTableHolds(t *testing.T) {
	for _, name := range []string{NameMACrossover, NameTrendMomentum, NameWeeklyBollinger} {
		s, _ := New(name, nil)
		f := series(map[string][]float64{models.ColClose: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10}})
		signals, err := s.GenerateSignals(f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(nonZero(signals)) != 0 {
			t.Errorf("%s: короткая таблица дала сигналы %v", name, nonZero(signals))
		}
	}
}

func TestMissingColumns(t *testing.T) {
	s, _ := NewPairsMeanReversion(nil)
	f := series(map[string][]float64{models.ColClose: {1, 2, 3}})
	if _, err := s.GenerateSignals(f); !errors.Is(err, ErrValidation) {
		t.Errorf("GenerateSignals: %v", err)
	}
	if _, err := s.Preprocess(f); !errors.Is(err, ErrValidation) {
		t.Errorf("Preprocess: %v", err)
	}
	if _, err := s.Preprocess(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Preprocess(nil): %v", err)
	}

	broken := series(map[string][]float64{models.ColClose: {1, 2, 3}, models.ColPairClose: {1, 2}})
	if _, err := s.GenerateSignals(broken); !errors.Is(err, ErrValidation) {
		t.Errorf("колонки разной длины: %v", err)
	}
}

func TestVolumeBreakoutSpike(t *testing.T) {
	volume := make([]float64, 50)
	for i := range volume {
		volume[i] = 100
	}
	volume[30] = 500
	f := series(map[string][]float64{models.ColVolume: volume})

	s, _ := NewVolumeBreakout(map[string]interface{}{"volume_period": 10})
	signals, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := nonZero(signals); len(got) != 1 || got[30] != 1 {
		t.Errorf("ожидался один вход на 30, получено %v", got)
	}

	s, _ = NewVolumeBreakout(map[string]interface{}{"volume_period": 10, "max_holding_period": 5})
	signals, _ = s.GenerateSignals(f)
	if got := nonZero(signals); len(got) != 2 || got[30] != 1 || got[35] != -1 {
		t.Errorf("ожидался выход по времени на 35, получено %v", got)
	}
}

func TestVolumeBreakoutTimeStopAcrossCalls(t *testing.T) {
	flat := func(spike int) *models.Frame {
		volume := make([]float64, 50)
		for i := range volume {
			volume[i] = 100
		}
		if spike >= 0 {
			volume[spike] = 500
		}
		return series(map[string][]float64{models.ColVolume: volume})
	}

	s, _ := NewVolumeBreakout(map[string]interface{}{"volume_period": 10, "max_holding_period": 5})
	first, _ := s.GenerateSignals(flat(47))
	if got := nonZero(first); len(got) != 1 || got[47] != 1 {
		t.Fatalf("первый прогон: ожидался вход на 47, получено %v", got)
	}

	// позиция удерживается 3 бара первого прогона, до первого доступного
	// бара второго прогона проходит еще 10
	second, _ := s.GenerateSignals(flat(-1))
	if got := nonZero(second); len(got) != 1 || got[10] != -1 {
		t.Errorf("второй прогон: ожидался выход по времени на 10, получено %v", got)
	}
}

func TestTrendMomentumSignalsAlternate(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + 0.2*float64(i) + 3*math.Sin(float64(i)/3)
	}
	f := series(map[string][]float64{models.ColClose: closes})
	s, _ := NewTrendMomentum(map[string]interface{}{"short_ma_period": 5, "long_ma_period": 50})
	signals, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatal(err)
	}
	assertAlternates(t, signals)
	if sum(rules.Entries(signals)) == 0 {
		t.Error("ожидался хотя бы один вход на растущей синусоиде")
	}
}

// assertAlternates проверяет, что вход и выход чередуются и выход
// противоположен входу
func assertAlternates(t *testing.T, signals []float64) {
	t.Helper()
	open := 0.0
	for i, v := range signals {
		switch {
		case v == 0:
		case open == 0:
			open = v
		case v == -open:
			open = 0
		default:
			t.Fatalf("сигнал %v на %d при открытой позиции %v", v, i, open)
		}
	}
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
