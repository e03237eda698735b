package technical

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// порог, ниже которого дисперсия считается нулевой (как в talib.StdDev)
const varianceEpsilon = 1e-14

// Bands полосы Боллинджера
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
	Width  []float64
}

// SMA простая скользящая средняя за period значений, включая текущее
func SMA(x []float64, period int) []float64 {
	if period < 1 {
		return nans(len(x))
	}
	return applyRuns(len(x), period-1, func(start, end int) []float64 {
		return talib.Sma(x[start:end], period)
	}, x)
}

// EMA экспоненциальная скользящая средняя, k = 2/(period+1).
// Первое значение - SMA первых period значений.
func EMA(x []float64, period int) []float64 {
	if period < 1 {
		return nans(len(x))
	}
	return applyRuns(len(x), period-1, func(start, end int) []float64 {
		return talib.Ema(x[start:end], period)
	}, x)
}

// STD стандартное отклонение генеральной совокупности (ddof = 0)
func STD(x []float64, period int) []float64 {
	_, std := rollingMeanStd(x, period)
	return std
}

// rollingMeanStd считает среднее и стандартное отклонение в каждом окне
// двухпроходным алгоритмом
func rollingMeanStd(x []float64, period int) (mean, std []float64) {
	mean = nans(len(x))
	std = nans(len(x))
	for i := range x {
		w, ok := window(x, i, period)
		if !ok {
			continue
		}
		m, variance := stat.PopMeanVariance(w, nil)
		if variance < varianceEpsilon*math.Max(1, m*m) {
			variance = 0
		}
		mean[i] = m
		std[i] = math.Sqrt(variance)
	}
	return mean, std
}

// Bollinger рассчитывает полосы SMA ± k·STD и их ширину
func Bollinger(x []float64, period int, k float64) Bands {
	middle := SMA(x, period)
	std := STD(x, period)
	n := len(x)
	b := Bands{
		Upper:  nans(n),
		Middle: middle,
		Lower:  nans(n),
		Width:  nans(n),
	}
	for i := 0; i < n; i++ {
		if !AllAvailable(middle[i], std[i]) {
			continue
		}
		b.Upper[i] = middle[i] + k*std[i]
		b.Lower[i] = middle[i] - k*std[i]
		b.Width[i] = b.Upper[i] - b.Lower[i]
	}
	return b
}

// RollingMax максимум за period значений, включая текущее
func RollingMax(x []float64, period int) []float64 {
	if period < 1 {
		return nans(len(x))
	}
	return applyRuns(len(x), period-1, func(start, end int) []float64 {
		if period == 1 {
			return x[start:end]
		}
		return talib.Max(x[start:end], period)
	}, x)
}

// RollingMin минимум за period значений, включая текущее
func RollingMin(x []float64, period int) []float64 {
	if period < 1 {
		return nans(len(x))
	}
	return applyRuns(len(x), period-1, func(start, end int) []float64 {
		if period == 1 {
			return x[start:end]
		}
		return talib.Min(x[start:end], period)
	}, x)
}

// ZScore (x - среднее)/стд за period значений. Не определен при нулевом
// стандартном отклонении.
func ZScore(x []float64, period int) []float64 {
	mean, std := rollingMeanStd(x, period)
	out := nans(len(x))
	for i := range x {
		if !AllAvailable(x[i], mean[i], std[i]) || std[i] == 0 {
			continue
		}
		out[i] = (x[i] - mean[i]) / std[i]
	}
	return out
}
