// Package strategy содержит контракт стратегии, схемы параметров, реестр
// и набор стратегий, построенных на автомате сигналов.
package strategy

import (
	"sort"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/rules"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/pkg/models"
)

// Strategy генератор торговых сигналов. Экземпляр владеет состоянием
// позиций и не должен использоваться из нескольких горутин.
type Strategy interface {
	Name() string
	RequiredColumns() []string
	// Preprocess проверяет наличие колонок и сортирует таблицу по времени
	Preprocess(f *models.Frame) (*models.Frame, error)
	// GenerateSignals возвращает ряд сигналов той же длины, что и таблица
	GenerateSignals(f *models.Frame) ([]float64, error)
	EntryRules(f *models.Frame, signals []float64) []float64
	ExitRules(f *models.Frame, signals []float64) []float64
	PositionSizing(f *models.Frame, signals []float64) []float64
	Description() string
	ParameterSchema() Schema
	Params() Params
	// Reset возвращает все позиции в исходное состояние
	Reset()
}

// CrossSectional отмечает стратегии, которые обрабатывают все символы
// одной таблицы совместно
type CrossSectional interface {
	CrossSectional()
}

// base общая часть стратегий
type base struct {
	name        string
	description string
	schema      Schema
	params      Params
	required    []string
	store       *state.Store
}

func newBase(name, description string, schema Schema, overrides map[string]interface{}, required ...string) (base, error) {
	params, err := schema.Resolve(name, overrides)
	if err != nil {
		return base{}, err
	}
	return base{
		name:        name,
		description: description,
		schema:      schema,
		params:      params,
		required:    required,
		store:       state.NewStore(),
	}, nil
}

// orderedPeriods требует, чтобы период short был строго меньше long
func (b *base) orderedPeriods(short, long string) error {
	if b.params.Int(short) >= b.params.Int(long) {
		return invalid(b.name, short, "должен быть меньше %s (%d >= %d)",
			long, b.params.Int(short), b.params.Int(long))
	}
	return nil
}

func (b *base) Name() string              { return b.name }
func (b *base) Description() string       { return b.description }
func (b *base) ParameterSchema() Schema   { return b.schema }
func (b *base) Params() Params            { return b.params }
func (b *base) RequiredColumns() []string { return b.required }
func (b *base) Reset()                    { b.store.ResetAll() }

// Store состояние позиций стратегии
func (b *base) Store() *state.Store { return b.store }

func (b *base) Preprocess(f *models.Frame) (*models.Frame, error) {
	if err := b.check(f); err != nil {
		return nil, err
	}
	return f.SortByTime(), nil
}

// check проверяет таблицу перед расчетом
func (b *base) check(f *models.Frame) error {
	if f == nil {
		return invalid(b.name, "", "пустая таблица")
	}
	if missing := f.Missing(b.required...); len(missing) > 0 {
		return invalid(b.name, "", "отсутствуют колонки %v", missing)
	}
	if err := f.Validate(); err != nil {
		return invalid(b.name, "", "%v", err)
	}
	return nil
}

func (b *base) EntryRules(f *models.Frame, signals []float64) []float64 {
	return rules.EntriesBySymbol(f.Symbol, signals)
}

func (b *base) ExitRules(f *models.Frame, signals []float64) []float64 {
	return rules.ExitsBySymbol(f.Symbol, signals)
}

func (b *base) PositionSizing(f *models.Frame, _ []float64) []float64 {
	return rules.Constant(f.Len(), b.params.Float("position_size"))
}

// evaluatorFunc строит правила стратегии для ряда одного символа
type evaluatorFunc func(sub *models.Frame) machine.Evaluator

// scanSymbols прогоняет автомат отдельно по каждому символу таблицы и
// собирает сигналы в порядке строк исходной таблицы
func (b *base) scanSymbols(f *models.Frame, build evaluatorFunc) ([]float64, error) {
	if err := b.check(f); err != nil {
		return nil, err
	}
	out := make([]float64, f.Len())
	for _, g := range f.Groups() {
		rows := timeOrdered(f, g.Rows)
		sub := f.Subset(rows)
		sig := machine.Scan(build(sub), machine.Quotes(sub, nil), b.store, g.Symbol)
		for k, row := range rows {
			out[row] = sig[k]
		}
	}
	return out, nil
}

// timeOrdered возвращает копию номеров строк, устойчиво отсортированную
// по времени
func timeOrdered(f *models.Frame, rows []int) []int {
	out := make([]int, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(a, b int) bool {
		return f.TimeAt(out[a]).Before(f.TimeAt(out[b]))
	})
	return out
}

// rotatorFunc строит правила ротации для отсортированной по времени таблицы
type rotatorFunc func(sorted *models.Frame) machine.Rotator

// scanDates прогоняет автомат ротации по датам таблицы и возвращает
// сигналы в порядке строк исходной таблицы
func (b *base) scanDates(f *models.Frame, build rotatorFunc) ([]float64, error) {
	if err := b.check(f); err != nil {
		return nil, err
	}
	all := make([]int, f.Len())
	for i := range all {
		all[i] = i
	}
	rows := timeOrdered(f, all)
	sorted := f.Subset(rows)
	sig := machine.ScanDates(build(sorted), sorted, b.store)
	out := make([]float64, f.Len())
	for k, row := range rows {
		out[row] = sig[k]
	}
	return out, nil
}

// monthsBetween число календарных месяцев между датами без учета дней
func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
