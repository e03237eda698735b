package technical

import (
	"github.com/markcheno/go-talib"
)

// TrueRange истинный диапазон max(high-low, |high-prevClose|, |low-prevClose|).
// Для первого бара используется high-low.
func TrueRange(high, low, closes []float64) []float64 {
	return applyRuns(len(closes), 0, func(start, end int) []float64 {
		tr := talib.TRange(high[start:end], low[start:end], closes[start:end])
		tr[0] = high[start] - low[start]
		return tr
	}, high, low, closes)
}

// ATR средний истинный диапазон: SMA истинного диапазона за period баров
func ATR(high, low, closes []float64, period int) []float64 {
	return SMA(TrueRange(high, low, closes), period)
}
