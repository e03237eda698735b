package state

import (
	"math"
)

// Ring кольцевой буфер фиксированной емкости
type Ring struct {
	data []float64
	next int
	size int
}

// NewRing создает буфер емкости capacity (не меньше 1)
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push добавляет значение. Если буфер полон, вытесняется самое старое
// значение, которое и возвращается.
func (r *Ring) Push(v float64) (evicted float64, ok bool) {
	if r.size == len(r.data) {
		evicted, ok = r.data[r.next], true
	} else {
		r.size++
	}
	r.data[r.next] = v
	r.next = (r.next + 1) % len(r.data)
	return evicted, ok
}

func (r *Ring) Len() int { return r.size }

func (r *Ring) Cap() int { return len(r.data) }

func (r *Ring) Full() bool { return r.size == len(r.data) }

// At возвращает i-е значение от самого старого
func (r *Ring) At(i int) float64 {
	if i < 0 || i >= r.size {
		return math.NaN()
	}
	start := (r.next - r.size + len(r.data)) % len(r.data)
	return r.data[(start+i)%len(r.data)]
}

// Last самое свежее значение
func (r *Ring) Last() float64 {
	return r.At(r.size - 1)
}

// Values значения от старых к новым
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Mean среднее по буферу
func (r *Ring) Mean() float64 {
	if r.size == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < r.size; i++ {
		sum += r.At(i)
	}
	return sum / float64(r.size)
}

// Std стандартное отклонение генеральной совокупности
func (r *Ring) Std() float64 {
	if r.size == 0 {
		return math.NaN()
	}
	m := r.Mean()
	ss := 0.0
	for i := 0; i < r.size; i++ {
		d := r.At(i) - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(r.size))
}

// Reset очищает буфер без перевыделения памяти
func (r *Ring) Reset() {
	r.next = 0
	r.size = 0
}
