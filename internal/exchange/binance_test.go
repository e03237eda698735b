package exchange

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/skalibog/bfsignals/pkg/models"
)

func TestKlineCandle(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	k := &futures.Kline{
		OpenTime:  open.UnixMilli(),
		Open:      "42000.10",
		High:      "42500.00",
		Low:       "41800.5",
		Close:     "42250.25",
		Volume:    "1234.567",
		CloseTime: open.Add(time.Hour).UnixMilli() - 1,
	}
	c, err := klineCandle("BTCUSDT", "1h", k)
	if err != nil {
		t.Fatal(err)
	}
	if c.Open != 42000.10 || c.High != 42500 || c.Low != 41800.5 || c.Close != 42250.25 || c.Volume != 1234.567 {
		t.Errorf("свеча %+v", c)
	}
	if !c.OpenTime.Equal(open) || c.Symbol != "BTCUSDT" || c.Interval != "1h" {
		t.Errorf("время или символ: %+v", c)
	}

	k.Close = "n/a"
	if _, err := klineCandle("BTCUSDT", "1h", k); err == nil {
		t.Error("ожидалась ошибка разбора цены")
	}
}

func TestCandlesFrameOrder(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := candlesFrame([]*models.Candle{
		{Symbol: "ETHUSDT", OpenTime: t0.Add(time.Hour), Close: 4},
		{Symbol: "ETHUSDT", OpenTime: t0, Close: 3},
		{Symbol: "BTCUSDT", OpenTime: t0.Add(time.Hour), Close: 2},
		{Symbol: "BTCUSDT", OpenTime: t0, Close: 1},
	})
	closes := f.Column(models.ColClose)
	want := []float64{1, 3, 2, 4}
	for i := range want {
		if closes[i] != want[i] {
			t.Fatalf("close %v, ожидалось %v", closes, want)
		}
	}
	if f.SymbolAt(0) != "BTCUSDT" || f.SymbolAt(1) != "ETHUSDT" {
		t.Errorf("порядок символов %v", f.Symbol)
	}
}
