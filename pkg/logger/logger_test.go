package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json.log")
	l, err := newLogger(Options{Level: "debug", JSONFile: path})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Debug("проверка", zap.String("symbol", "BTCUSDT"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("чтение лога: %v", err)
	}
	if !strings.Contains(string(data), `"symbol":"BTCUSDT"`) {
		t.Errorf("в JSON логе нет поля symbol: %s", data)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := newLogger(Options{Level: "loud"}); err == nil {
		t.Fatal("ожидалась ошибка для неизвестного уровня")
	}
}

func TestSetLoggerReplacesGlobal(t *testing.T) {
	nop := zap.NewNop()
	SetLogger(nop)
	if GetLogger() != nop {
		t.Fatal("GetLogger вернул не подмененный логгер")
	}
	Info("не должно паниковать")
}

func TestInitReplacesDefault(t *testing.T) {
	_ = GetLogger()
	path := filepath.Join(t.TempDir(), "run.json.log")
	if err := Init(Options{Level: "debug", JSONFile: path}); err != nil {
		t.Fatal(err)
	}
	Debug("после настройки", zap.String("strategy", "pairs"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("чтение лога: %v", err)
	}
	if !strings.Contains(string(data), `"strategy":"pairs"`) {
		t.Errorf("Init не заменил логгер по умолчанию: %s", data)
	}
}
