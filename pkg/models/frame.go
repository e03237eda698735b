package models

import (
	"fmt"
	"sort"
	"time"
)

// Названия колонок таблицы баров
const (
	ColDate      = "date"
	ColSymbol    = "symbol"
	ColOpen      = "open"
	ColHigh      = "high"
	ColLow       = "low"
	ColClose     = "close"
	ColVolume    = "volume"
	ColPairClose = "pair_close"
	ColAdvances  = "advances"
	ColDeclines  = "declines"
	ColNewHighs  = "new_highs"
	ColNewLows   = "new_lows"
)

// Frame колоночная таблица баров. Time и Symbol необязательны,
// числовые колонки хранятся по имени.
type Frame struct {
	Time    []time.Time
	Symbol  []string
	Columns map[string][]float64
}

// Group строки одного символа в порядке следования
type Group struct {
	Symbol string
	Rows   []int
}

// NewFrame создает пустую таблицу с заданными временными метками и символами
func NewFrame(times []time.Time, symbols []string) *Frame {
	return &Frame{
		Time:    times,
		Symbol:  symbols,
		Columns: make(map[string][]float64),
	}
}

// FromCandles собирает таблицу из свечей
func FromCandles(candles []*Candle) *Frame {
	n := len(candles)
	f := &Frame{
		Time:    make([]time.Time, n),
		Symbol:  make([]string, n),
		Columns: make(map[string][]float64, 5),
	}
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		f.Time[i] = c.OpenTime
		f.Symbol[i] = c.Symbol
		open[i] = c.Open
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
		volume[i] = c.Volume
	}
	f.Columns[ColOpen] = open
	f.Columns[ColHigh] = high
	f.Columns[ColLow] = low
	f.Columns[ColClose] = closes
	f.Columns[ColVolume] = volume
	return f
}

// Len возвращает количество строк
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	if f.Time != nil {
		return len(f.Time)
	}
	if f.Symbol != nil {
		return len(f.Symbol)
	}
	for _, col := range f.Columns {
		return len(col)
	}
	return 0
}

// Has сообщает, есть ли колонка в таблице
func (f *Frame) Has(name string) bool {
	switch name {
	case ColDate:
		return f.Time != nil
	case ColSymbol:
		return f.Symbol != nil
	}
	_, ok := f.Columns[name]
	return ok
}

// Missing возвращает отсутствующие колонки из списка
func (f *Frame) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Column возвращает числовую колонку или nil
func (f *Frame) Column(name string) []float64 {
	return f.Columns[name]
}

// SetColumn добавляет или заменяет числовую колонку
func (f *Frame) SetColumn(name string, values []float64) error {
	if n := f.Len(); len(f.Columns) > 0 || f.Time != nil || f.Symbol != nil {
		if len(values) != n {
			return fmt.Errorf("длина колонки %s (%d) не совпадает с таблицей (%d)", name, len(values), n)
		}
	}
	if f.Columns == nil {
		f.Columns = make(map[string][]float64)
	}
	f.Columns[name] = values
	return nil
}

// Validate проверяет, что все колонки одинаковой длины
func (f *Frame) Validate() error {
	n := f.Len()
	if f.Time != nil && len(f.Time) != n {
		return fmt.Errorf("длина колонки %s (%d) не совпадает с таблицей (%d)", ColDate, len(f.Time), n)
	}
	if f.Symbol != nil && len(f.Symbol) != n {
		return fmt.Errorf("длина колонки %s (%d) не совпадает с таблицей (%d)", ColSymbol, len(f.Symbol), n)
	}
	for name, col := range f.Columns {
		if len(col) != n {
			return fmt.Errorf("длина колонки %s (%d) не совпадает с таблицей (%d)", name, len(col), n)
		}
	}
	return nil
}

// SymbolAt возвращает символ строки, пустую строку для одиночного ряда
func (f *Frame) SymbolAt(i int) string {
	if f.Symbol == nil {
		return ""
	}
	return f.Symbol[i]
}

// TimeAt возвращает время строки или нулевое время
func (f *Frame) TimeAt(i int) time.Time {
	if f.Time == nil {
		return time.Time{}
	}
	return f.Time[i]
}

// SortByTime возвращает копию таблицы, устойчиво отсортированную по времени.
// Без колонки времени возвращается сама таблица.
func (f *Frame) SortByTime() *Frame {
	if f.Time == nil || sort.SliceIsSorted(f.Time, func(i, j int) bool { return f.Time[i].Before(f.Time[j]) }) {
		return f
	}
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return f.Time[rows[a]].Before(f.Time[rows[b]])
	})
	return f.Subset(rows)
}

// Subset возвращает новую таблицу из указанных строк
func (f *Frame) Subset(rows []int) *Frame {
	out := &Frame{Columns: make(map[string][]float64, len(f.Columns))}
	if f.Time != nil {
		out.Time = make([]time.Time, len(rows))
		for k, r := range rows {
			out.Time[k] = f.Time[r]
		}
	}
	if f.Symbol != nil {
		out.Symbol = make([]string, len(rows))
		for k, r := range rows {
			out.Symbol[k] = f.Symbol[r]
		}
	}
	for name, col := range f.Columns {
		values := make([]float64, len(rows))
		for k, r := range rows {
			values[k] = col[r]
		}
		out.Columns[name] = values
	}
	return out
}

// Groups разбивает строки по символам в порядке первого появления
func (f *Frame) Groups() []Group {
	n := f.Len()
	if f.Symbol == nil {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return []Group{{Rows: rows}}
	}

	index := make(map[string]int)
	var groups []Group
	for i, s := range f.Symbol {
		k, ok := index[s]
		if !ok {
			k = len(groups)
			index[s] = k
			groups = append(groups, Group{Symbol: s})
		}
		groups[k].Rows = append(groups[k].Rows, i)
	}
	return groups
}

// Dates группирует строки по одинаковой временной метке.
// Таблица должна быть отсортирована по времени.
func (f *Frame) Dates() [][]int {
	n := f.Len()
	if f.Time == nil {
		dates := make([][]int, n)
		for i := range dates {
			dates[i] = []int{i}
		}
		return dates
	}

	var dates [][]int
	for i := 0; i < n; i++ {
		if i > 0 && f.Time[i].Equal(f.Time[i-1]) {
			dates[len(dates)-1] = append(dates[len(dates)-1], i)
			continue
		}
		dates = append(dates, []int{i})
	}
	return dates
}
