package technical

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// минимальное число пар наблюдений для оценки хедж-коэффициента
const minBetaObservations = 30

// finitePairs отбирает пары, в которых оба значения определены
func finitePairs(x, y []float64) (xs, ys []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !AllAvailable(x[i], y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// OLSBeta оценивает наклон регрессии y = alpha + beta·x методом наименьших
// квадратов. При недостатке данных или вырожденном x возвращает 1.
func OLSBeta(y, x []float64) float64 {
	xs, ys := finitePairs(x, y)
	if len(xs) < minBetaObservations {
		return 1
	}
	_, variance := stat.PopMeanVariance(xs, nil)
	if variance == 0 {
		return 1
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if !Available(beta) {
		return 1
	}
	return beta
}

// Correlation коэффициент корреляции Пирсона по определенным парам.
// Меньше трех наблюдений или нулевая дисперсия дают NaN.
func Correlation(x, y []float64) float64 {
	xs, ys := finitePairs(x, y)
	if len(xs) < 3 {
		return math.NaN()
	}
	c := stat.Correlation(xs, ys, nil)
	if !Available(c) {
		return math.NaN()
	}
	return c
}

// Spread остаток a - beta·b
func Spread(a, b []float64, beta float64) []float64 {
	out := nans(len(a))
	for i := range a {
		if i >= len(b) || !AllAvailable(a[i], b[i]) {
			continue
		}
		out[i] = a[i] - beta*b[i]
	}
	return out
}
