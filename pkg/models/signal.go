package models

// Значения сигнала
const (
	SignalExit  = -1.0
	SignalHold  = 0.0
	SignalEnter = 1.0
)

// SignalSet результат прогона стратегии: сырой сигнал и производные ряды,
// выровненные по строкам исходной таблицы
type SignalSet struct {
	RunID    string
	Strategy string
	Frame    *Frame
	Signal   []float64
	Entry    []float64
	Exit     []float64
	Size     []float64
}

// Counts возвращает количество входов и выходов
func (s *SignalSet) Counts() (entries, exits int) {
	for i := range s.Signal {
		if i < len(s.Entry) && s.Entry[i] != 0 {
			entries++
		}
		if i < len(s.Exit) && s.Exit[i] != 0 {
			exits++
		}
	}
	return entries, exits
}

// Results возвращает строки с ненулевым сигналом для сохранения
func (s *SignalSet) Results() []*SignalResult {
	closes := s.Frame.Column(ColClose)
	var results []*SignalResult
	for i, v := range s.Signal {
		if v == 0 {
			continue
		}
		r := &SignalResult{
			RunID:          s.RunID,
			Strategy:       s.Strategy,
			Symbol:         s.Frame.SymbolAt(i),
			Timestamp:      s.Frame.TimeAt(i),
			Recommendation: RecommendationHold,
			Signal:         v,
		}
		if i < len(s.Entry) {
			r.Entry = s.Entry[i]
		}
		if i < len(s.Exit) {
			r.Exit = s.Exit[i]
		}
		if i < len(s.Size) {
			r.PositionSize = s.Size[i]
		}
		if closes != nil {
			r.CurrentPrice = closes[i]
		}
		switch {
		case r.Entry != 0:
			r.Recommendation = RecommendationEnter
		case r.Exit != 0:
			r.Recommendation = RecommendationExit
		}
		results = append(results, r)
	}
	return results
}
