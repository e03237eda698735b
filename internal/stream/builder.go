// Package stream собирает поток тиков в свечи заданного интервала.
package stream

import (
	"time"

	"github.com/skalibog/bfsignals/pkg/models"
)

// IntervalWeek недельный интервал с границами по ISO-неделям
const IntervalWeek = "1w"

// Builder агрегирует тики в свечи по символам. Свеча считается
// завершенной, когда приходит тик из следующего интервала.
// Не потокобезопасен.
type Builder struct {
	interval string
	step     time.Duration
	current  map[string]*models.Candle
}

// NewBuilder создает сборщик для интервала в формате Binance ("1h", "1d", "1w")
func NewBuilder(interval string) *Builder {
	return &Builder{
		interval: interval,
		step:     models.IntervalDuration(interval),
		current:  make(map[string]*models.Candle),
	}
}

// bucket возвращает начало интервала, которому принадлежит t
func (b *Builder) bucket(t time.Time) time.Time {
	if b.interval != IntervalWeek {
		return t.Truncate(b.step)
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	// ISO-неделя начинается в понедельник
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (b *Builder) end(start time.Time) time.Time {
	if b.interval == IntervalWeek {
		return start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	}
	return start.Add(b.step - time.Nanosecond)
}

// Add учитывает тик. Если тик открывает новый интервал, возвращается
// завершенная свеча предыдущего интервала. Опоздавший тик из уже
// завершенного интервала отбрасывается.
func (b *Builder) Add(symbol string, price, volume float64, t time.Time) (*models.Candle, bool) {
	start := b.bucket(t)
	c, ok := b.current[symbol]
	if ok && start.Before(c.OpenTime) {
		return nil, false
	}
	if ok && start.Equal(c.OpenTime) {
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume += volume
		return nil, false
	}

	b.current[symbol] = &models.Candle{
		Symbol:    symbol,
		Interval:  b.interval,
		OpenTime:  start,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
		CloseTime: b.end(start),
	}
	if !ok {
		return nil, false
	}
	return c, true
}

// Flush возвращает текущую незавершенную свечу символа и удаляет ее
func (b *Builder) Flush(symbol string) (*models.Candle, bool) {
	c, ok := b.current[symbol]
	if ok {
		delete(b.current, symbol)
	}
	return c, ok
}
