package technical

import (
	"github.com/markcheno/go-talib"
)

// OBV балансовый объем: накопленный объем со знаком изменения цены закрытия.
// Первое значение равно объему первого бара, неизменная цена дает ноль.
func OBV(closes, volume []float64) []float64 {
	return applyRuns(len(closes), 0, func(start, end int) []float64 {
		return talib.Obv(closes[start:end], volume[start:end])
	}, closes, volume)
}

// TypicalPrice типичная цена (high+low+close)/3
func TypicalPrice(high, low, closes []float64) []float64 {
	out := nans(len(closes))
	for i := range closes {
		if !AllAvailable(high[i], low[i], closes[i]) {
			continue
		}
		out[i] = (high[i] + low[i] + closes[i]) / 3
	}
	return out
}

// VWAP средневзвешенная по объему типичная цена за period баров.
// Не определена, если суммарный объем окна равен нулю.
func VWAP(high, low, closes, volume []float64, period int) []float64 {
	n := len(closes)
	if period < 1 {
		return nans(n)
	}
	tp := TypicalPrice(high, low, closes)
	pv := make([]float64, n)
	for i := range pv {
		pv[i] = tp[i] * volume[i]
	}
	num := applyRuns(n, period-1, func(start, end int) []float64 {
		return talib.Sum(pv[start:end], period)
	}, pv)
	den := applyRuns(n, period-1, func(start, end int) []float64 {
		return talib.Sum(volume[start:end], period)
	}, volume)
	return Ratio(num, den)
}

// DollarVolume денежный объем close·volume
func DollarVolume(closes, volume []float64) []float64 {
	out := nans(len(closes))
	for i := range closes {
		if !AllAvailable(closes[i], volume[i]) {
			continue
		}
		out[i] = closes[i] * volume[i]
	}
	return out
}
