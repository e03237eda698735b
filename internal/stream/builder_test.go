package stream

import (
	"testing"
	"time"
)

func TestBuilderWeekly(t *testing.T) {
	b := NewBuilder(IntervalWeek)
	// 2024-01-01 понедельник
	mon := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ticks := []struct {
		at    time.Time
		price float64
	}{
		{mon, 10},
		{mon.AddDate(0, 0, 2), 12},
		{mon.AddDate(0, 0, 4), 9},
		{mon.AddDate(0, 0, 6), 11}, // воскресенье той же недели
	}
	for _, tk := range ticks {
		if _, done := b.Add("BTCUSDT", tk.price, 1, tk.at); done {
			t.Fatalf("свеча завершена раньше времени на %v", tk.at)
		}
	}

	c, done := b.Add("BTCUSDT", 13, 1, mon.AddDate(0, 0, 7))
	if !done {
		t.Fatal("тик следующей недели должен завершить свечу")
	}
	if c.Open != 10 || c.High != 12 || c.Low != 9 || c.Close != 11 || c.Volume != 4 {
		t.Errorf("неверная свеча: %+v", c)
	}
	if !c.OpenTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("начало недели %v", c.OpenTime)
	}

	rest, ok := b.Flush("BTCUSDT")
	if !ok || rest.Open != 13 {
		t.Errorf("Flush вернул %+v, %v", rest, ok)
	}
	if _, ok := b.Flush("BTCUSDT"); ok {
		t.Error("повторный Flush должен быть пустым")
	}
}

func TestBuilderSymbolsIndependent(t *testing.T) {
	b := NewBuilder("1h")
	t0 := time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	b.Add("A", 1, 1, t0)
	b.Add("B", 2, 1, t0)
	if _, done := b.Add("A", 3, 1, t0.Add(time.Hour)); !done {
		t.Fatal("свеча A должна завершиться")
	}
	c, ok := b.Flush("B")
	if !ok || c.Close != 2 || !c.OpenTime.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("свеча B: %+v", c)
	}
}

func TestBuilderDropsLateTick(t *testing.T) {
	b := NewBuilder("1h")
	t0 := time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	b.Add("A", 1, 1, t0)
	if _, done := b.Add("A", 2, 1, t0.Add(time.Hour)); !done {
		t.Fatal("свеча 10:00 должна завершиться")
	}
	// тик 10:50 пришел после открытия 11:00
	if c, done := b.Add("A", 100, 5, t0.Add(35*time.Minute)); done || c != nil {
		t.Fatalf("опоздавший тик завершил свечу %+v", c)
	}
	b.Add("A", 3, 1, t0.Add(time.Hour+10*time.Minute))

	c, ok := b.Flush("A")
	if !ok || !c.OpenTime.Equal(time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("свеча сдвинулась назад: %+v", c)
	}
	if c.Open != 2 || c.High != 3 || c.Close != 3 || c.Volume != 2 {
		t.Errorf("опоздавший тик попал в свечу: %+v", c)
	}
}
