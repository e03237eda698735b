package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestLoad(t *testing.T) {
	t.Setenv("BFS_INFLUX_TOKEN", "from-env")
	t.Setenv("BFS_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Type != SourceInflux || len(cfg.Source.Symbols) != 2 {
		t.Errorf("источник: %+v", cfg.Source)
	}
	if !cfg.Source.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("начало периода %v", cfg.Source.Start)
	}
	if cfg.Storage.Token != "from-env" {
		t.Errorf("токен из окружения не применен: %q", cfg.Storage.Token)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("уровень лога %q", cfg.Log.Level)
	}
	if cfg.Source.Limit != 500 {
		t.Errorf("лимит по умолчанию %d", cfg.Source.Limit)
	}

	enabled := cfg.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("включено %d стратегий", len(enabled))
	}
	params := enabled[0].Params
	if params["short_ma_period"] != 20 {
		t.Errorf("short_ma_period = %#v", params["short_ma_period"])
	}
	if enabled[1].Params["z_score_entry"] != 2.5 || enabled[1].Params["cointegration_test"] != false {
		t.Errorf("параметры пары: %#v", enabled[1].Params)
	}
}

func TestOverridesAppliedBeforeValidation(t *testing.T) {
	data := []byte("source: {type: csv}\nstrategies: [{name: ma_crossover}]\n")
	if _, err := Parse(data); err == nil {
		t.Fatal("без пути к CSV конфигурация невалидна")
	}
	cfg, err := Parse(data, func(c *Config) { c.Source.Input = "bars.csv" })
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Input != "bars.csv" {
		t.Errorf("input %q", cfg.Source.Input)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		errs int
	}{
		{"ok", "source: {type: csv, input: bars.csv}\nstrategies: [{name: ma_crossover}]\n", 0},
		{"no strategies", "source: {type: csv, input: bars.csv}\n", 1},
		{"unknown source", "source: {type: ftp}\nstrategies: [{name: a}]\n", 1},
		{"duplicates and no input", "strategies: [{name: a}, {name: a}, {name: ''}]\n", 3},
		{"save without storage", "source: {type: binance, symbols: [BTCUSDT]}\nrun: {save_signals: true}\nstrategies: [{name: a}]\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if got := len(multierr.Errors(err)); got != tt.errs {
				t.Errorf("нарушений %d, ожидалось %d: %v", got, tt.errs, err)
			}
		})
	}
}

func TestParseRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("source: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("ожидалась ошибка разбора")
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := Load("../../config.example.yaml")
	if err != nil {
		t.Fatalf("пример конфигурации невалиден: %v", err)
	}
	if cfg.Source.Type != SourceBinance || len(cfg.Source.Symbols) != 3 {
		t.Errorf("источник %+v", cfg.Source)
	}
	if got := len(cfg.Enabled()); got != 7 {
		t.Errorf("включено стратегий %d, ожидалось 7", got)
	}
}
