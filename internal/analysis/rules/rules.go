// Package rules строит производные ряды входов, выходов и размера позиции
// из сырого ряда сигналов.
package rules

// Entries отмечает входы: ненулевой сигнал при отсутствии позиции
func Entries(signals []float64) []float64 {
	entries, _ := replay(signals)
	return entries
}

// Exits отмечает выходы: ненулевой сигнал при открытой позиции
func Exits(signals []float64) []float64 {
	_, exits := replay(signals)
	return exits
}

// replay восстанавливает журнал позиции по ряду сигналов
func replay(signals []float64) (entries, exits []float64) {
	entries = make([]float64, len(signals))
	exits = make([]float64, len(signals))
	open := false
	for i, v := range signals {
		if v == 0 {
			continue
		}
		if open {
			exits[i] = 1
		} else {
			entries[i] = 1
		}
		open = !open
	}
	return entries, exits
}

// EntriesBySymbol то же, что Entries, но журнал ведется по каждому символу
func EntriesBySymbol(symbols []string, signals []float64) []float64 {
	entries, _ := replayBySymbol(symbols, signals)
	return entries
}

// ExitsBySymbol то же, что Exits, но журнал ведется по каждому символу
func ExitsBySymbol(symbols []string, signals []float64) []float64 {
	_, exits := replayBySymbol(symbols, signals)
	return exits
}

func replayBySymbol(symbols []string, signals []float64) (entries, exits []float64) {
	if symbols == nil {
		return replay(signals)
	}
	entries = make([]float64, len(signals))
	exits = make([]float64, len(signals))
	open := make(map[string]bool)
	for i, v := range signals {
		if v == 0 {
			continue
		}
		sym := symbols[i]
		if open[sym] {
			exits[i] = 1
		} else {
			entries[i] = 1
		}
		open[sym] = !open[sym]
	}
	return entries, exits
}

// Equals отмечает строки, где сигнал равен v
func Equals(signals []float64, v float64) []float64 {
	out := make([]float64, len(signals))
	for i, s := range signals {
		if s == v {
			out[i] = 1
		}
	}
	return out
}

// Constant ряд длины n, заполненный size
func Constant(n int, size float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = size
	}
	return out
}

// EqualWeight равный вес 1/k, где k - число открытых позиций по всем
// символам после обработки строки. Без позиций вес 0.
func EqualWeight(symbols []string, signals []float64) []float64 {
	out := make([]float64, len(signals))
	open := make(map[string]bool)
	for i, v := range signals {
		sym := ""
		if symbols != nil {
			sym = symbols[i]
		}
		if v != 0 {
			if open[sym] {
				delete(open, sym)
			} else {
				open[sym] = true
			}
		}
		if len(open) > 0 {
			out[i] = 1 / float64(len(open))
		}
	}
	return out
}
