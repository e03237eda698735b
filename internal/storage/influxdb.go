// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/bfsignals/internal/config"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
)

// Измерения InfluxDB
const (
	MeasurementCandles = "candles"
	MeasurementSignals = "signals"
)

// диапазон запроса по умолчанию
const defaultRange = "-30d"

// Storage интерфейс для работы с хранилищем данных
type Storage interface {
	// Таблица баров для стратегий
	GetFrame(ctx context.Context, q FrameQuery) (*models.Frame, error)

	// Методы для свечей
	SaveCandles(ctx context.Context, candles []*models.Candle) error
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)

	// Методы для сигналов
	SaveSignals(ctx context.Context, signals []*models.SignalResult) error
	GetSignalHistory(ctx context.Context, strategy, symbol string, limit int) ([]*models.SignalResult, error)

	// Вспомогательные методы
	GetSymbols(ctx context.Context) ([]string, error)
	Close()
}

// FrameQuery параметры выборки таблицы баров. Все числовые поля
// измерения становятся колонками таблицы.
type FrameQuery struct {
	Measurement string
	Symbols     []string
	Interval    string
	Start       time.Time
	Stop        time.Time
	Limit       int // последние Limit строк каждого символа, 0 - все
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPI
	blocking api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		blocking: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.writeAPI.Flush()
	s.client.Close()
}

// GetFrame читает бары нескольких символов в одну таблицу
func (s *InfluxDBStorage) GetFrame(ctx context.Context, q FrameQuery) (*models.Frame, error) {
	query := frameQuery(s.bucket, q)
	logger.Debug("Запрос таблицы баров", zap.String("query", query))

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса таблицы баров: %w", err)
	}

	b := newFrameBuilder()
	for result.Next() {
		record := result.Record()
		symbol, _ := record.ValueByKey("symbol").(string)
		b.add(record.Time(), symbol, record.Values())
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return b.frame(), nil
}

// SaveCandles сохраняет множество свечей
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, candles []*models.Candle) error {
	for _, candle := range candles {
		s.writeAPI.WritePoint(candlePoint(candle))
	}
	s.writeAPI.Flush()
	return nil
}

// GetCandles получает исторические свечи в порядке возрастания времени
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	f, err := s.GetFrame(ctx, FrameQuery{
		Measurement: MeasurementCandles,
		Symbols:     []string{symbol},
		Interval:    interval,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	return CandlesFromFrame(f, interval), nil
}

// SaveSignals сохраняет строки таблицы сигналов одной записью
func (s *InfluxDBStorage) SaveSignals(ctx context.Context, signals []*models.SignalResult) error {
	if len(signals) == 0 {
		return nil
	}
	points := make([]*write.Point, len(signals))
	for i, sig := range signals {
		points[i] = signalPoint(sig)
	}
	if err := s.blocking.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("ошибка записи сигналов: %w", err)
	}
	logger.Debug("Сигналы сохранены", zap.Int("count", len(points)))
	return nil
}

// GetSignalHistory получает историю сигналов стратегии по символу
func (s *InfluxDBStorage) GetSignalHistory(ctx context.Context, strategy, symbol string, limit int) ([]*models.SignalResult, error) {
	// Формируем Flux-запрос
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.strategy == "%s" and r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, defaultRange, MeasurementSignals, strategy, symbol, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}

	var signals []*models.SignalResult
	for result.Next() {
		signals = append(signals, signalFromValues(result.Record().Time(), result.Record().Values()))
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return signals, nil
}

// GetSymbols возвращает список символов со свечами за последние сутки
func (s *InfluxDBStorage) GetSymbols(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -1d)
			|> filter(fn: (r) => r._measurement == "%s")
			|> keep(columns: ["symbol"])
			|> group()
			|> distinct(column: "symbol")
	`, s.bucket, MeasurementCandles)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса символов: %w", err)
	}

	var symbols []string
	for result.Next() {
		if symbol, ok := result.Record().Value().(string); ok {
			symbols = append(symbols, symbol)
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	sort.Strings(symbols)
	return symbols, nil
}

// frameQuery строит Flux-запрос таблицы баров
func frameQuery(bucket string, q FrameQuery) string {
	measurement := q.Measurement
	if measurement == "" {
		measurement = MeasurementCandles
	}
	start := defaultRange
	if !q.Start.IsZero() {
		start = q.Start.UTC().Format(time.RFC3339)
	}
	rng := "start: " + start
	if !q.Stop.IsZero() {
		rng += ", stop: " + q.Stop.UTC().Format(time.RFC3339)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&sb, "\t|> range(%s)\n", rng)
	fmt.Fprintf(&sb, "\t|> filter(fn: (r) => r._measurement == %q)\n", measurement)
	if len(q.Symbols) > 0 {
		conds := make([]string, len(q.Symbols))
		for i, sym := range q.Symbols {
			conds[i] = fmt.Sprintf("r.symbol == %q", sym)
		}
		fmt.Fprintf(&sb, "\t|> filter(fn: (r) => %s)\n", strings.Join(conds, " or "))
	}
	if q.Interval != "" {
		fmt.Fprintf(&sb, "\t|> filter(fn: (r) => r.interval == %q)\n", q.Interval)
	}
	sb.WriteString("\t|> pivot(rowKey:[\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	if q.Limit > 0 {
		fmt.Fprintf(&sb, "\t|> tail(n: %d)\n", q.Limit)
	}
	sb.WriteString("\t|> group()\n")
	sb.WriteString("\t|> sort(columns: [\"_time\", \"symbol\"])\n")
	return sb.String()
}

func candlePoint(candle *models.Candle) *write.Point {
	return influxdb2.NewPoint(
		MeasurementCandles,
		map[string]string{
			"symbol":   candle.Symbol,
			"interval": candle.Interval,
		},
		map[string]interface{}{
			"open":   candle.Open,
			"high":   candle.High,
			"low":    candle.Low,
			"close":  candle.Close,
			"volume": candle.Volume,
		},
		candle.OpenTime,
	)
}

func signalPoint(sig *models.SignalResult) *write.Point {
	return influxdb2.NewPoint(
		MeasurementSignals,
		map[string]string{
			"strategy": sig.Strategy,
			"symbol":   sig.Symbol,
			"run_id":   sig.RunID,
		},
		map[string]interface{}{
			"recommendation": sig.Recommendation,
			"signal":         sig.Signal,
			"entry":          sig.Entry,
			"exit":           sig.Exit,
			"position_size":  sig.PositionSize,
			"price":          sig.CurrentPrice,
		},
		sig.Timestamp,
	)
}

func signalFromValues(t time.Time, values map[string]interface{}) *models.SignalResult {
	str := func(key string) string { v, _ := values[key].(string); return v }
	num := func(key string) float64 { v, _ := toFloat(values[key]); return v }
	return &models.SignalResult{
		RunID:          str("run_id"),
		Strategy:       str("strategy"),
		Symbol:         str("symbol"),
		Timestamp:      t,
		Recommendation: str("recommendation"),
		Signal:         num("signal"),
		Entry:          num("entry"),
		Exit:           num("exit"),
		PositionSize:   num("position_size"),
		CurrentPrice:   num("price"),
	}
}

// CandlesFromFrame собирает свечи из таблицы с колонками OHLCV
func CandlesFromFrame(f *models.Frame, interval string) []*models.Candle {
	value := func(name string, i int) float64 {
		if col := f.Column(name); col != nil {
			return col[i]
		}
		return math.NaN()
	}
	step := models.IntervalDuration(interval)
	candles := make([]*models.Candle, f.Len())
	for i := range candles {
		t := f.TimeAt(i)
		candles[i] = &models.Candle{
			Symbol:    f.SymbolAt(i),
			Interval:  interval,
			OpenTime:  t,
			Open:      value(models.ColOpen, i),
			High:      value(models.ColHigh, i),
			Low:       value(models.ColLow, i),
			Close:     value(models.ColClose, i),
			Volume:    value(models.ColVolume, i),
			CloseTime: t.Add(step),
		}
	}
	return candles
}

// frameBuilder собирает таблицу из записей с произвольным набором полей.
// Поле, отсутствующее в записи, заполняется NaN.
type frameBuilder struct {
	times   []time.Time
	symbols []string
	columns map[string][]float64
}

func newFrameBuilder() *frameBuilder {
	return &frameBuilder{
		times:   []time.Time{},
		symbols: []string{},
		columns: make(map[string][]float64),
	}
}

func (b *frameBuilder) add(t time.Time, symbol string, values map[string]interface{}) {
	n := len(b.times)
	b.times = append(b.times, t)
	b.symbols = append(b.symbols, symbol)
	for key, raw := range values {
		if strings.HasPrefix(key, "_") || key == "result" || key == "table" {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		col, seen := b.columns[key]
		if !seen {
			col = make([]float64, n, n+1)
			for i := range col {
				col[i] = math.NaN()
			}
		}
		b.columns[key] = append(col, v)
	}
	for key, col := range b.columns {
		if len(col) == n {
			b.columns[key] = append(col, math.NaN())
		}
	}
}

func (b *frameBuilder) frame() *models.Frame {
	f := models.NewFrame(b.times, b.symbols)
	f.Columns = b.columns
	return f.SortByTime()
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
