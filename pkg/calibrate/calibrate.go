package calibrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/goresponsive/pkg/config"
	"github.com/itohio/goresponsive/pkg/filter"
)

// ErrTooSlow is returned when the operator's sweep exhausts the sample
// budget before the recorded maximum is reached.
var ErrTooSlow = errors.New("calibration sweep too slow")

// wakePollInterval is how often the procedure re-samples while waiting for
// the operator to move off zero before the sweep.
const wakePollInterval = 100 * time.Millisecond

// outputMax is the top of the emitted output range.
const outputMax = 255

// Procedure guides an operator through a sensor sweep and derives a
// piecewise-linear calibration table from it. It is a blocking, offline
// workflow: prompts and fixed delays pace the operator, never steady-state
// filtering.
type Procedure struct {
	src    filter.Source
	tracer filter.Tracer
	delay  func(time.Duration)

	settleDelay    time.Duration
	sweepDelay     time.Duration
	sampleInterval time.Duration
	bufferSize     int
}

// New creates a procedure reading from src with the given timing
// configuration. A nil cfg uses the defaults.
func New(src filter.Source, cfg *config.CalibrationConfig) *Procedure {
	if cfg == nil {
		d := config.Default()
		cfg = &d.Calibration
	}
	return &Procedure{
		src:            src,
		delay:          time.Sleep,
		settleDelay:    cfg.SettleDelay,
		sweepDelay:     cfg.SweepDelay,
		sampleInterval: cfg.SampleInterval,
		bufferSize:     cfg.BufferSize,
	}
}

// SetTracer attaches a diagnostics sink for prompts and progress. Pass nil
// to run silently.
func (p *Procedure) SetTracer(tr filter.Tracer) { p.tracer = tr }

// SetDelay replaces the blocking delay primitive. Pass nil to restore
// time.Sleep.
func (p *Procedure) SetDelay(fn func(time.Duration)) {
	if fn == nil {
		fn = time.Sleep
	}
	p.delay = fn
}

func (p *Procedure) emit(text string) {
	if p.tracer != nil {
		p.tracer.Emit(text)
	}
}

// Run executes the calibration protocol:
//
//  1. prompt for the minimum, wait, sample it
//  2. prompt for the maximum, wait, sample it
//  3. prompt for a slow minimum-to-maximum sweep and record it at a fixed
//     interval into a bounded buffer
//  4. abort with ErrTooSlow if the buffer fills before the maximum shows up
//
// On success it returns the captured inputs paired with evenly spaced
// outputs over [0, 255], ready for Filter.SetCalibration. On abort nothing
// is returned, so any previously active table stays untouched.
func (p *Procedure) Run() ([]filter.Breakpoint, error) {
	p.emit("starting sensor calibration")

	p.emit("turn all the way to the minimum")
	p.delay(p.settleDelay)
	min := p.src.Sample()
	p.emit(fmt.Sprintf("minimum: %d", min))

	p.emit("turn all the way to the maximum")
	p.delay(p.settleDelay)
	max := p.src.Sample()
	p.emit(fmt.Sprintf("maximum: %d", max))

	p.emit("now turn slowly from minimum to maximum")
	p.delay(p.sweepDelay)

	// Wait for the operator to move off the bottom rail.
	for p.src.Sample() == 0 {
		p.delay(wakePollInterval)
	}

	buf := make([]int, 0, p.bufferSize)
	buf = append(buf, min)
	for {
		raw := p.src.Sample()
		if len(buf) >= p.bufferSize {
			p.emit("movement too slow, please start again")
			return nil, ErrTooSlow
		}
		buf = append(buf, raw)
		if raw >= max {
			break
		}
		p.delay(p.sampleInterval)
	}

	p.emit(fmt.Sprintf("good, got %d data points", len(buf)+1))

	// Pair the captured inputs with evenly spaced outputs; the recorded
	// maximum closes the table at exactly outputMax.
	points := make([]filter.Breakpoint, 0, len(buf)+1)
	step := outputMax / (len(buf) + 1)
	for i, in := range buf {
		points = append(points, filter.Breakpoint{In: in, Out: i * step})
	}
	points = append(points, filter.Breakpoint{In: max, Out: outputMax})

	return points, nil
}
