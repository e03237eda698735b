// Package datasource загружает таблицы баров из файлов
package datasource

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
)

// колонки времени в порядке предпочтения
var timeColumns = []string{models.ColDate, "time", "timestamp", "datetime"}

// форматы даты, которые встречаются в выгрузках
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
}

// LoadCSV читает таблицу баров из CSV файла
func LoadCSV(path string) (*models.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия %s: %w", path, err)
	}
	defer f.Close()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("Загружена таблица баров",
		zap.String("path", path),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns)))
	return frame, nil
}

// ReadCSV читает CSV с заголовком. Колонка date (time, timestamp) и
// колонка symbol необязательны, остальные числовые колонки попадают
// в таблицу под именами в нижнем регистре. Строки сортируются по времени.
func ReadCSV(r io.Reader) (*models.Frame, error) {
	df := dataframe.ReadCSV(r, dataframe.DetectTypes(true))
	if df.Err != nil {
		return nil, fmt.Errorf("ошибка чтения CSV: %w", df.Err)
	}

	names := make(map[string]string, df.Ncol())
	for _, name := range df.Names() {
		names[strings.ToLower(strings.TrimSpace(name))] = name
	}

	frame := models.NewFrame(nil, nil)
	timeCol := ""
	for _, candidate := range timeColumns {
		if name, ok := names[candidate]; ok {
			timeCol = candidate
			times, err := parseTimes(df.Col(name))
			if err != nil {
				return nil, err
			}
			frame.Time = times
			break
		}
	}
	if name, ok := names[models.ColSymbol]; ok {
		frame.Symbol = df.Col(name).Records()
	}

	for lower, name := range names {
		if lower == timeCol || lower == models.ColSymbol {
			continue
		}
		col := df.Col(name)
		switch col.Type() {
		case series.Int, series.Float:
			frame.Columns[lower] = col.Float()
		case series.Bool:
			frame.Columns[lower] = boolFloats(col)
		default:
			logger.Debug("Пропущена нечисловая колонка", zap.String("column", name))
		}
	}

	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame.SortByTime(), nil
}

func parseTimes(s series.Series) ([]time.Time, error) {
	records := s.Records()
	out := make([]time.Time, len(records))
	for i, raw := range records {
		t, err := parseTime(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", i+1, err)
		}
		out[i] = t
	}
	return out, nil
}

// parseTime разбирает дату в одном из известных форматов или unix время
// в секундах либо миллисекундах
func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("неизвестный формат даты %q", raw)
}

func boolFloats(s series.Series) []float64 {
	records := s.Records()
	out := make([]float64, len(records))
	for i, raw := range records {
		switch strings.ToLower(raw) {
		case "true":
			out[i] = 1
		case "false":
			out[i] = 0
		default:
			out[i] = math.NaN()
		}
	}
	return out
}
