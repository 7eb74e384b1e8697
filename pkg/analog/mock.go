package analog

import (
	"math"
	"time"

	"github.com/itohio/goresponsive/pkg/config"
)

// Mock simulates a potentiometer for testing and development: a slow
// sinusoidal sweep around a center position with deterministic sin/cos
// noise on top. Sampling is synchronous, matching the polled model of the
// real bridge.
type Mock struct {
	cfg        *config.MockConfig
	resolution int
	start      time.Time
	now        func() time.Time
}

// NewMock creates a simulated source. A nil cfg uses the defaults; a
// non-positive resolution uses the 10-bit domain.
func NewMock(cfg *config.MockConfig, resolution int) *Mock {
	if cfg == nil {
		d := config.Default()
		cfg = &d.Mock
	}
	if resolution <= 0 {
		resolution = 1024
	}
	return &Mock{
		cfg:        cfg,
		resolution: resolution,
		start:      time.Now(),
		now:        time.Now,
	}
}

// Sample returns the simulated reading at the current instant, bounded to
// [0, resolution-1].
func (m *Mock) Sample() int {
	elapsed := m.now().Sub(m.start).Seconds()

	period := m.cfg.SweepPeriod.Seconds()
	if period <= 0 {
		period = 1
	}
	pos := float64(m.cfg.Level) + float64(m.cfg.Amplitude)*math.Sin(2*math.Pi*elapsed/period)

	noise := (math.Sin(elapsed*997) + math.Cos(elapsed*1301)) * float64(m.cfg.NoiseLevel) * 0.5
	v := int(pos + noise)

	if v < 0 {
		v = 0
	} else if v > m.resolution-1 {
		v = m.resolution - 1
	}
	return v
}
