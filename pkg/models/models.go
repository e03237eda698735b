package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Рекомендации для сохраненных сигналов
const (
	RecommendationEnter = "ВХОД"
	RecommendationExit  = "ВЫХОД"
	RecommendationHold  = "УДЕРЖАНИЕ"
)

// SignalResult представляет одну строку таблицы сигналов для внешних потребителей
type SignalResult struct {
	RunID          string
	Strategy       string
	Symbol         string
	Timestamp      time.Time
	Recommendation string
	Signal         float64
	Entry          float64
	Exit           float64
	PositionSize   float64
	CurrentPrice   float64
}

// IntervalDuration конвертирует строковый интервал в duration
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "3d":
		return 72 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}
