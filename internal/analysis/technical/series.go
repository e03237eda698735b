// Package technical содержит индикаторы технического анализа.
//
// Все функции чистые: принимают ряды одинаковой длины и возвращают ряд той же
// длины. Значения, для которых окно еще не заполнено или содержит недоступные
// данные, равны NaN и должны пропускаться потребителями.
package technical

import (
	"math"
)

// Available сообщает, определено ли значение индикатора
func Available(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllAvailable сообщает, определены ли все значения
func AllAvailable(values ...float64) bool {
	for _, v := range values {
		if !Available(v) {
			return false
		}
	}
	return true
}

// nans возвращает ряд длины n, заполненный NaN
func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// availableAt сообщает, определены ли все ряды в позиции i
func availableAt(i int, series [][]float64) bool {
	for _, s := range series {
		if i >= len(s) || !Available(s[i]) {
			return false
		}
	}
	return true
}

// applyRuns применяет fn к каждому непрерывному участку [start, end), на
// котором все входы определены, и выравнивает результат по исходному ряду.
// Первые lookback значений участка недоступны, поэтому NaN остаются только
// там, где окно захватывает пропуск.
func applyRuns(n, lookback int, fn func(start, end int) []float64, inputs ...[]float64) []float64 {
	out := nans(n)
	if lookback < 0 {
		return out
	}
	for start := 0; start < n; {
		if !availableAt(start, inputs) {
			start++
			continue
		}
		end := start + 1
		for end < n && availableAt(end, inputs) {
			end++
		}
		if end-start > lookback {
			res := fn(start, end)
			for i := start + lookback; i < end; i++ {
				out[i] = res[i-start]
			}
		}
		start = end
	}
	return out
}

// Shift сдвигает ряд на k позиций вперед: out[i] = x[i-k]
func Shift(x []float64, k int) []float64 {
	out := nans(len(x))
	if k < 0 {
		return out
	}
	for i := k; i < len(x); i++ {
		out[i] = x[i-k]
	}
	return out
}

// Ratio возвращает поэлементное отношение a/b, NaN при нулевом делителе
func Ratio(a, b []float64) []float64 {
	out := nans(len(a))
	for i := range a {
		if i >= len(b) || !AllAvailable(a[i], b[i]) || b[i] == 0 {
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// window возвращает срез окна [i-period+1, i] или false, если окно неполное
// или содержит недоступные значения
func window(x []float64, i, period int) ([]float64, bool) {
	if period < 1 || i-period+1 < 0 {
		return nil, false
	}
	w := x[i-period+1 : i+1]
	for _, v := range w {
		if !Available(v) {
			return nil, false
		}
	}
	return w, true
}
