// Package state хранит позиционное состояние стратегий по символам.
package state

import (
	"math"
	"time"
)

// Side направление позиции
type Side int

const (
	Flat  Side = 0
	Long  Side = 1
	Short Side = -1
)

// Sign возвращает значение сигнала, соответствующее направлению
func (s Side) Sign() float64 {
	return float64(s)
}

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// PositionState состояние позиции по одному символу
type PositionState struct {
	Side       Side
	EntryPrice float64
	EntryIndex int
	EntryTime  time.Time
	Highest    float64 // максимум цены с момента входа
	Lowest     float64 // минимум цены с момента входа
	HedgeRatio float64 // для парных стратегий
	Streak     int     // счетчик подряд идущих событий для правил выхода
}

// NewPositionState возвращает пустую позицию
func NewPositionState() PositionState {
	return PositionState{EntryIndex: -1, Highest: math.NaN(), Lowest: math.NaN()}
}

// Flat сообщает, что позиции нет
func (p PositionState) Flat() bool {
	return p.Side == Flat
}

// Enter возвращает состояние после входа в позицию
func (p PositionState) Enter(side Side, i int, price float64, t time.Time) PositionState {
	p.Side = side
	p.EntryIndex = i
	p.EntryPrice = price
	p.EntryTime = t
	p.Highest = price
	p.Lowest = price
	return p
}

// Exit возвращает состояние после закрытия позиции. Счетчик Streak
// сохраняется, так как он описывает рынок, а не позицию.
func (p PositionState) Exit() PositionState {
	streak := p.Streak
	p = NewPositionState()
	p.Streak = streak
	return p
}

// Held число баров с момента входа. Индекс входа может быть
// отрицательным, если позиция открыта в предыдущем прогоне.
func (p PositionState) Held(i int) int {
	if p.Flat() {
		return 0
	}
	return i - p.EntryIndex
}

// Rebase переносит индекс входа в нумерацию следующего прогона, который
// начнется с бара n текущего
func (p PositionState) Rebase(n int) PositionState {
	if !p.Flat() {
		p.EntryIndex -= n
	}
	return p
}

// Track обновляет экстремумы цены с момента входа
func (p PositionState) Track(high, low float64) PositionState {
	if p.Flat() {
		return p
	}
	if !math.IsNaN(high) && (math.IsNaN(p.Highest) || high > p.Highest) {
		p.Highest = high
	}
	if !math.IsNaN(low) && (math.IsNaN(p.Lowest) || low < p.Lowest) {
		p.Lowest = low
	}
	return p
}
