package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skalibog/bfsignals/internal/analysis/aggregator"
	"github.com/skalibog/bfsignals/internal/config"
	"github.com/skalibog/bfsignals/internal/datasource"
	"github.com/skalibog/bfsignals/internal/exchange"
	"github.com/skalibog/bfsignals/internal/metrics"
	"github.com/skalibog/bfsignals/internal/storage"
	"github.com/skalibog/bfsignals/pkg/logger"
	"github.com/skalibog/bfsignals/pkg/models"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	source := flag.String("source", "", "источник баров: csv, influx или binance")
	input := flag.String("input", "", "путь к CSV файлу с барами")
	only := flag.String("strategy", "", "запустить только одну стратегию")
	flag.Parse()

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *source != "" {
			c.Source.Type = *source
		}
		if *input != "" {
			c.Source.Input = *input
		}
	})
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}
	if err := logger.Init(cfg.LoggerOptions()); err != nil {
		logger.Fatal("Ошибка инициализации логгера", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Настраиваем обработку сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
	}()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		logger.Info("Запущен сервер метрик", zap.String("addr", cfg.Metrics.Addr))
	}

	var store storage.Storage
	if cfg.Storage.URL != "" {
		s, err := storage.NewInfluxDBStorage(cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		defer s.Close()
		store = s
	}

	frame, err := loadFrame(ctx, cfg, store)
	if err != nil {
		logger.Fatal("Ошибка загрузки баров", zap.String("source", cfg.Source.Type), zap.Error(err))
	}

	runner := aggregator.NewRunner(cfg)
	var sets []*models.SignalSet
	if *only != "" {
		set, err := runner.Run(ctx, *only, params(cfg, *only), frame)
		if err != nil {
			logger.Fatal("Ошибка прогона стратегии", zap.String("strategy", *only), zap.Error(err))
		}
		sets = append(sets, set)
	} else {
		sets, err = runner.RunAll(ctx, frame)
		if err != nil {
			// частичный результат все равно сохраняем
			logger.Error("Часть стратегий завершилась с ошибкой", zap.Error(err))
		}
	}

	for _, set := range sets {
		entries, exits := set.Counts()
		fmt.Printf("%-24s входов: %4d  выходов: %4d\n", set.Strategy, entries, exits)

		if !cfg.Run.SaveSignals || store == nil {
			continue
		}
		results := set.Results()
		if err := store.SaveSignals(ctx, results); err != nil {
			logger.Error("Ошибка сохранения сигналов", zap.String("strategy", set.Strategy), zap.Error(err))
			continue
		}
		logger.Info("Сигналы сохранены",
			zap.String("strategy", set.Strategy),
			zap.String("run_id", set.RunID),
			zap.Int("count", len(results)))
	}
}

// loadFrame загружает таблицу баров из источника конфигурации
func loadFrame(ctx context.Context, cfg *config.Config, store storage.Storage) (*models.Frame, error) {
	src := cfg.Source
	switch src.Type {
	case config.SourceCSV:
		return datasource.LoadCSV(src.Input)

	case config.SourceInflux:
		return store.GetFrame(ctx, storage.FrameQuery{
			Measurement: src.Measurement,
			Symbols:     src.Symbols,
			Interval:    src.Interval,
			Start:       src.Start,
			Stop:        src.End,
			Limit:       src.Limit,
		})

	case config.SourceBinance:
		client := exchange.NewBinanceClient(cfg.Binance)
		reqCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		frame, err := client.GetFrame(reqCtx, src.Symbols, src.Interval, src.Limit)
		if err != nil {
			return nil, err
		}
		// свечи с биржи сохраняем для последующих прогонов из influx
		if store != nil {
			if err := store.SaveCandles(ctx, storage.CandlesFromFrame(frame, src.Interval)); err != nil {
				logger.Warn("Не удалось сохранить свечи", zap.Error(err))
			}
		}
		return frame, nil
	}
	return nil, fmt.Errorf("неизвестный источник %q", src.Type)
}

// params параметры стратегии из конфигурации, если она там описана
func params(cfg *config.Config, name string) map[string]interface{} {
	for _, s := range cfg.Strategies {
		if s.Name == name {
			return s.Params
		}
	}
	return nil
}
