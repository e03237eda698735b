package strategy

import (
	"math"
	"sort"

	"go.uber.org/multierr"
)

// ParamType тип параметра стратегии
type ParamType string

const (
	TypeInt   ParamType = "int"
	TypeFloat ParamType = "float"
	TypeBool  ParamType = "bool"
)

// ParamSpec описание параметра: тип, допустимый диапазон и значение
// по умолчанию
type ParamSpec struct {
	Type        ParamType   `yaml:"type" json:"type"`
	Min         float64     `yaml:"min" json:"min"`
	Max         float64     `yaml:"max" json:"max"`
	Default     interface{} `yaml:"default" json:"default"`
	Description string      `yaml:"description" json:"description"`
}

// Schema параметры стратегии по имени
type Schema map[string]ParamSpec

// Names имена параметров в алфавитном порядке
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intParam(def, min, max int, desc string) ParamSpec {
	return ParamSpec{Type: TypeInt, Min: float64(min), Max: float64(max), Default: def, Description: desc}
}

func floatParam(def, min, max float64, desc string) ParamSpec {
	return ParamSpec{Type: TypeFloat, Min: min, Max: max, Default: def, Description: desc}
}

func boolParam(def bool, desc string) ParamSpec {
	return ParamSpec{Type: TypeBool, Default: def, Description: desc}
}

// positionSizeParam общий параметр множителя размера позиции
var positionSizeParam = floatParam(1.0, 0.1, 10.0, "Множитель размера позиции")

// Params проверенный набор параметров. Значения не изменяются после
// создания.
type Params struct {
	values map[string]interface{}
}

// Int возвращает целочисленный параметр
func (p Params) Int(name string) int {
	v, _ := p.values[name].(int)
	return v
}

// Float возвращает вещественный параметр
func (p Params) Float(name string) float64 {
	switch v := p.values[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool возвращает логический параметр
func (p Params) Bool(name string) bool {
	v, _ := p.values[name].(bool)
	return v
}

// Map возвращает копию значений
func (p Params) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Resolve объединяет значения по умолчанию с переопределениями и проверяет
// их по схеме. Значения вне диапазона не обрезаются, а отклоняются.
// Все нарушения собираются в одну ошибку.
func (s Schema) Resolve(strategy string, overrides map[string]interface{}) (Params, error) {
	values := make(map[string]interface{}, len(s))
	for name, spec := range s {
		values[name] = spec.Default
	}

	var errs error
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		spec, ok := s[name]
		if !ok {
			errs = multierr.Append(errs, invalid(strategy, name, "неизвестный параметр"))
			continue
		}
		v, err := spec.coerce(strategy, name, overrides[name])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		values[name] = v
	}
	if errs != nil {
		return Params{}, errs
	}
	return Params{values: values}, nil
}

// coerce приводит значение к типу параметра и проверяет диапазон
func (spec ParamSpec) coerce(strategy, name string, raw interface{}) (interface{}, error) {
	switch spec.Type {
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid(strategy, name, "ожидалось bool, получено %T", raw)
		}
		return b, nil
	case TypeInt:
		f, ok := number(raw)
		if !ok {
			return nil, invalid(strategy, name, "ожидалось целое, получено %T", raw)
		}
		if f != math.Trunc(f) {
			return nil, invalid(strategy, name, "ожидалось целое, получено %v", raw)
		}
		if err := spec.checkRange(strategy, name, f); err != nil {
			return nil, err
		}
		return int(f), nil
	case TypeFloat:
		f, ok := number(raw)
		if !ok {
			return nil, invalid(strategy, name, "ожидалось число, получено %T", raw)
		}
		if err := spec.checkRange(strategy, name, f); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, invalid(strategy, name, "неизвестный тип параметра %q", spec.Type)
}

func (spec ParamSpec) checkRange(strategy, name string, f float64) error {
	if math.IsNaN(f) || f < spec.Min || f > spec.Max {
		return invalid(strategy, name, "значение %v вне диапазона [%v, %v]", f, spec.Min, spec.Max)
	}
	return nil
}

// number принимает числа в том виде, в каком их возвращает yaml.v2
func number(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	return 0, false
}
