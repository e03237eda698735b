package state

import (
	"sort"
)

// Store хранит состояние позиций и буферы по символам.
// Не потокобезопасен: каждому воркеру нужен свой экземпляр.
type Store struct {
	positions map[string]PositionState
	buffers   map[string]map[string]*Ring
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		positions: make(map[string]PositionState),
		buffers:   make(map[string]map[string]*Ring),
	}
}

// GetOrCreate возвращает состояние символа, создавая пустую позицию
// при первом обращении
func (s *Store) GetOrCreate(symbol string) PositionState {
	st, ok := s.positions[symbol]
	if !ok {
		st = NewPositionState()
		s.positions[symbol] = st
	}
	return st
}

// Put сохраняет состояние символа
func (s *Store) Put(symbol string, st PositionState) {
	s.positions[symbol] = st
}

// Has сообщает, наблюдался ли символ
func (s *Store) Has(symbol string) bool {
	_, ok := s.positions[symbol]
	return ok
}

// Reset сбрасывает позицию и буферы символа
func (s *Store) Reset(symbol string) {
	delete(s.positions, symbol)
	delete(s.buffers, symbol)
}

// ResetAll очищает хранилище
func (s *Store) ResetAll() {
	s.positions = make(map[string]PositionState)
	s.buffers = make(map[string]map[string]*Ring)
}

// Symbols возвращает отсортированный список известных символов
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len число символов с состоянием
func (s *Store) Len() int {
	return len(s.positions)
}

// Held возвращает символы с открытой позицией
func (s *Store) Held() []string {
	var out []string
	for _, sym := range s.Symbols() {
		if !s.positions[sym].Flat() {
			out = append(out, sym)
		}
	}
	return out
}

// Buffer возвращает именованный кольцевой буфер символа, создавая его
// при первом обращении. Емкость задается только при создании.
func (s *Store) Buffer(symbol, name string, capacity int) *Ring {
	byName, ok := s.buffers[symbol]
	if !ok {
		byName = make(map[string]*Ring)
		s.buffers[symbol] = byName
	}
	r, ok := byName[name]
	if !ok {
		r = NewRing(capacity)
		byName[name] = r
	}
	return r
}
