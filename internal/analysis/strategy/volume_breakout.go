package strategy

import (
	"github.com/skalibog/bfsignals/internal/analysis/machine"
	"github.com/skalibog/bfsignals/internal/analysis/state"
	"github.com/skalibog/bfsignals/internal/analysis/technical"
	"github.com/skalibog/bfsignals/pkg/models"
)

const NameVolumeBreakout = "volume_breakout"

// VolumeBreakout вход при объеме выше среднего за volume_period баров
type VolumeBreakout struct {
	base
}

func volumeBreakoutSchema() Schema {
	return Schema{
		"volume_period":      intParam(100, 10, 200, "Период среднего объема"),
		"max_holding_period": intParam(0, 0, 250, "Максимальное удержание в барах, 0 - без ограничения"),
		"position_size":      positionSizeParam,
	}
}

func NewVolumeBreakout(overrides map[string]interface{}) (*VolumeBreakout, error) {
	b, err := newBase(NameVolumeBreakout,
		"Пробой по объему: вход, когда объем бара превышает средний объем за "+
			"период. Выход по времени удержания, если он задан.",
		volumeBreakoutSchema(), overrides, models.ColVolume)
	if err != nil {
		return nil, err
	}
	return &VolumeBreakout{base: b}, nil
}

func (s *VolumeBreakout) GenerateSignals(f *models.Frame) ([]float64, error) {
	p := s.params
	return s.scanSymbols(f, func(sub *models.Frame) machine.Evaluator {
		volume := sub.Column(models.ColVolume)
		return &volumeRules{
			period:     p.Int("volume_period"),
			maxHolding: p.Int("max_holding_period"),
			volume:     volume,
			avg:        technical.SMA(volume, p.Int("volume_period")),
		}
	})
}

type volumeRules struct {
	period     int
	maxHolding int
	volume     []float64
	avg        []float64
}

func (r *volumeRules) Warmup() int { return r.period }

func (r *volumeRules) Available(i int) bool {
	return technical.AllAvailable(r.volume[i], r.avg[i])
}

func (r *volumeRules) ForcedExit(i int, st state.PositionState) bool {
	return r.maxHolding > 0 && st.Held(i) >= r.maxHolding
}

func (r *volumeRules) SoftExit(int, state.PositionState) bool { return false }

func (r *volumeRules) Entry(i int, _ state.PositionState) state.Side {
	if r.volume[i] > r.avg[i] {
		return state.Long
	}
	return state.Flat
}
