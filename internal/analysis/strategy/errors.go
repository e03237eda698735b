package strategy

import (
	"errors"
	"fmt"
)

// ErrValidation базовая ошибка проверки входных данных и параметров
var ErrValidation = errors.New("ошибка валидации")

// ValidationError описывает нарушение до начала расчетов
type ValidationError struct {
	Strategy string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Strategy, e.Field, e.Reason)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(strategy, field, format string, args ...interface{}) error {
	return &ValidationError{Strategy: strategy, Field: field, Reason: fmt.Sprintf(format, args...)}
}
