package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/skalibog/bfsignals/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Источники баров
const (
	SourceCSV     = "csv"
	SourceInflux  = "influx"
	SourceBinance = "binance"
)

// префикс переменных окружения
const envPrefix = "BFS"

// Config представляет полную конфигурацию приложения
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Binance    BinanceConfig    `yaml:"binance"`
	Storage    StorageConfig    `yaml:"storage"`
	Run        RunConfig        `yaml:"run"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	Env EnvConfig `yaml:"-"`
}

// SourceConfig откуда брать таблицу баров
type SourceConfig struct {
	Type        string    `yaml:"type"` // csv, influx, binance
	Input       string    `yaml:"input"`
	Measurement string    `yaml:"measurement"`
	Symbols     []string  `yaml:"symbols"`
	Interval    string    `yaml:"interval"`
	Limit       int       `yaml:"limit"`
	Start       time.Time `yaml:"start"`
	End         time.Time `yaml:"end"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Type         string `yaml:"type"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// RunConfig настройки прогона стратегий
type RunConfig struct {
	Workers     int  `yaml:"workers"`
	SaveSignals bool `yaml:"save_signals"`
}

// StrategyConfig стратегия и переопределенные параметры. Параметры
// проверяются по схеме стратегии при ее создании.
type StrategyConfig struct {
	Name     string                 `yaml:"name"`
	Disabled bool                   `yaml:"disabled"`
	Params   map[string]interface{} `yaml:"params"`
}

// LogConfig настройки логгера
type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Console  bool   `yaml:"console"`
}

// MetricsConfig адрес HTTP сервера метрик, пусто - не запускать
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// EnvConfig секреты и переопределения из окружения (BFS_*)
type EnvConfig struct {
	InfluxToken      string `envconfig:"INFLUX_TOKEN"`
	BinanceAPIKey    string `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret string `envconfig:"BINANCE_API_SECRET"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
}

// Override изменяет конфигурацию до проверки, например флагами командной строки
type Override func(*Config)

// Load загружает конфигурацию из файла и применяет переменные окружения
func Load(path string, overrides ...Override) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	cfg, err := Parse(data, overrides...)
	if err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("source", cfg.Source))
	return cfg, nil
}

// Parse разбирает YAML, применяет окружение, переопределения и значения
// по умолчанию
func Parse(data []byte, overrides ...Override) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg.Env); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}
	cfg.applyEnv()
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Env.InfluxToken != "" {
		c.Storage.Token = c.Env.InfluxToken
	}
	if c.Env.BinanceAPIKey != "" {
		c.Binance.APIKey = c.Env.BinanceAPIKey
	}
	if c.Env.BinanceAPISecret != "" {
		c.Binance.APISecret = c.Env.BinanceAPISecret
	}
	if c.Env.LogLevel != "" {
		c.Log.Level = c.Env.LogLevel
	}
}

func (c *Config) setDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = SourceCSV
	}
	if c.Source.Interval == "" {
		c.Source.Interval = "1d"
	}
	if c.Source.Measurement == "" {
		c.Source.Measurement = "candles"
	}
	if c.Source.Limit == 0 {
		c.Source.Limit = 500
	}
	if c.Run.Workers == 0 {
		c.Run.Workers = 4
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate проверяет обязательные разделы. Все нарушения собираются
// в одну ошибку.
func (c *Config) Validate() error {
	var errs error
	switch c.Source.Type {
	case SourceCSV:
		if c.Source.Input == "" {
			errs = multierr.Append(errs, fmt.Errorf("source.input: не задан путь к CSV"))
		}
	case SourceInflux:
		if c.Storage.URL == "" || c.Storage.Bucket == "" {
			errs = multierr.Append(errs, fmt.Errorf("storage: для источника influx нужны url и bucket"))
		}
	case SourceBinance:
		if len(c.Source.Symbols) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("source.symbols: не заданы символы"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("source.type: неизвестный источник %q", c.Source.Type))
	}

	if c.Run.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("run.workers: отрицательное значение %d", c.Run.Workers))
	}
	if c.Run.SaveSignals && c.Storage.URL == "" {
		errs = multierr.Append(errs, fmt.Errorf("run.save_signals: не настроено хранилище"))
	}

	if len(c.Strategies) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("strategies: не задано ни одной стратегии"))
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		switch {
		case s.Name == "":
			errs = multierr.Append(errs, fmt.Errorf("strategies[%d]: не задано имя", i))
		case seen[s.Name]:
			errs = multierr.Append(errs, fmt.Errorf("strategies[%d]: стратегия %s указана повторно", i, s.Name))
		}
		seen[s.Name] = true
	}
	return errs
}

// Enabled стратегии, включенные в прогон
func (c *Config) Enabled() []StrategyConfig {
	var out []StrategyConfig
	for _, s := range c.Strategies {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// LoggerOptions настройки для logger.Init
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:    c.Log.Level,
		File:     c.Log.File,
		JSONFile: c.Log.JSONFile,
		Console:  c.Log.Console,
	}
}
