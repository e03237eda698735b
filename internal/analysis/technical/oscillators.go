package technical

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI индекс относительной силы: среднее приростов к среднему падений за period
// изменений цены (простое среднее, без сглаживания Уайлдера). При нулевом
// среднем падении RSI равен 100.
func RSI(closes []float64, period int) []float64 {
	out := nans(len(closes))
	if period < 1 {
		return out
	}
	for i := period; i < len(closes); i++ {
		w, ok := window(closes, i, period+1)
		if !ok {
			continue
		}
		var gain, loss float64
		for k := 1; k < len(w); k++ {
			d := w[k] - w[k-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		if loss == 0 {
			out[i] = 100
			continue
		}
		rs := (gain / float64(period)) / (loss / float64(period))
		out[i] = math.Max(0, math.Min(100, 100-100/(1+rs)))
	}
	return out
}

// Momentum относительное изменение цены за period баров: x[i]/x[i-period] - 1
func Momentum(x []float64, period int) []float64 {
	if period < 1 {
		return nans(len(x))
	}
	out := applyRuns(len(x), period, func(start, end int) []float64 {
		return talib.Rocp(x[start:end], period)
	}, x)
	for i := period; i < len(x); i++ {
		if x[i-period] == 0 {
			out[i] = math.NaN()
		}
	}
	return out
}

// PercentRank процентильный ранг текущего значения в окне period значений
// (0..100). Для равных значений используется средний ранг.
func PercentRank(x []float64, period int) []float64 {
	out := nans(len(x))
	for i := range x {
		w, ok := window(x, i, period)
		if !ok {
			continue
		}
		cur := x[i]
		var less, equal int
		for _, v := range w {
			switch {
			case v < cur:
				less++
			case v == cur:
				equal++
			}
		}
		rank := float64(less) + float64(equal+1)/2
		out[i] = rank / float64(period) * 100
	}
	return out
}
