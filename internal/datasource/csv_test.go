package datasource

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/bfsignals/pkg/models"
)

func TestLoadCSV(t *testing.T) {
	f, err := LoadCSV(filepath.Join("testdata", "bars.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 4 {
		t.Fatalf("строк %d", f.Len())
	}
	if missing := f.Missing(models.ColDate, models.ColSymbol, models.ColOpen, models.ColHigh, models.ColLow, models.ColClose, models.ColVolume); len(missing) > 0 {
		t.Fatalf("нет колонок %v", missing)
	}

	// строки отсортированы по времени с сохранением порядка внутри даты
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !f.TimeAt(0).Equal(day1) || f.SymbolAt(0) != "BTCUSDT" || f.SymbolAt(1) != "ETHUSDT" {
		t.Errorf("порядок строк: %v %v", f.Time, f.Symbol)
	}
	closes := f.Column(models.ColClose)
	if closes[0] != 42100 || closes[3] != 2390 {
		t.Errorf("close %v", closes)
	}
	if !math.IsNaN(f.Column(models.ColVolume)[1]) {
		t.Errorf("NA должно читаться как NaN: %v", f.Column(models.ColVolume))
	}
}

func TestReadCSVWithoutSymbol(t *testing.T) {
	in := "timestamp,close,advances\n1704067200,1.5,100\n1704153600,2.5,200\n"
	f, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if f.Has(models.ColSymbol) || f.Len() != 2 {
		t.Fatalf("таблица %+v", f)
	}
	if !f.TimeAt(1).Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("время %v", f.TimeAt(1))
	}
	if f.Column(models.ColAdvances)[1] != 200 {
		t.Errorf("advances %v", f.Column(models.ColAdvances))
	}
}

func TestReadCSVBadDate(t *testing.T) {
	in := "date,close\nвчера,1\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Fatal("ожидалась ошибка разбора даты")
	}
}

func TestParseTimeUnixMillis(t *testing.T) {
	got, err := parseTime("1704067200000")
	if err != nil || !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseTime: %v, %v", got, err)
	}
}
