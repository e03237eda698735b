package strategy

import (
	"sort"
)

// Factory создает стратегию с переопределенными параметрами
type Factory func(overrides map[string]interface{}) (Strategy, error)

var registry = map[string]Factory{
	NameMACrossover:           func(o map[string]interface{}) (Strategy, error) { return wrap(NewMACrossover(o)) },
	NameTrendMomentum:         func(o map[string]interface{}) (Strategy, error) { return wrap(NewTrendMomentum(o)) },
	NameVolatilityContraction: func(o map[string]interface{}) (Strategy, error) { return wrap(NewVolatilityContraction(o)) },
	NameLiquidityMomentum:     func(o map[string]interface{}) (Strategy, error) { return wrap(NewLiquidityMomentum(o)) },
	NamePairsMeanReversion:    func(o map[string]interface{}) (Strategy, error) { return wrap(NewPairsMeanReversion(o)) },
	NameVolumeBreakout:        func(o map[string]interface{}) (Strategy, error) { return wrap(NewVolumeBreakout(o)) },
	NameWeeklyBollinger:       func(o map[string]interface{}) (Strategy, error) { return wrap(NewWeeklyBollinger(o)) },
	NameGapUpBollinger:        func(o map[string]interface{}) (Strategy, error) { return wrap(NewGapUpBollinger(o)) },
	NameTopMomentum:           func(o map[string]interface{}) (Strategy, error) { return wrap(NewTopMomentum(o)) },
	NameBreadthRotation:       func(o map[string]interface{}) (Strategy, error) { return wrap(NewBreadthRotation(o)) },
}

// wrap приводит конкретную стратегию к интерфейсу, не теряя nil
func wrap[S Strategy](s S, err error) (Strategy, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New создает стратегию по имени
func New(name string, overrides map[string]interface{}) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, invalid(name, "", "неизвестная стратегия, доступны %v", Names())
	}
	return factory(overrides)
}

// Names имена зарегистрированных стратегий в алфавитном порядке
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCrossSectional сообщает, обрабатывает ли стратегия символы совместно
func IsCrossSectional(s Strategy) bool {
	_, ok := s.(CrossSectional)
	return ok
}
