package calibrate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goresponsive/pkg/config"
)

// scriptedSource replays a fixed sequence of readings, then repeats the
// final one.
type scriptedSource struct {
	values []int
	pos    int
}

func (s *scriptedSource) Sample() int {
	if s.pos >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.pos]
	s.pos++
	return v
}

// recordingTracer collects emitted diagnostics.
type recordingTracer struct {
	lines []string
}

func (r *recordingTracer) Emit(text string) { r.lines = append(r.lines, text) }

// fakeClock records requested delays instead of sleeping.
type fakeClock struct {
	delays []time.Duration
}

func (c *fakeClock) sleep(d time.Duration) { c.delays = append(c.delays, d) }

func newTestProcedure(src *scriptedSource) (*Procedure, *recordingTracer, *fakeClock) {
	cfg := config.Default().Calibration
	p := New(src, &cfg)
	tr := &recordingTracer{}
	clk := &fakeClock{}
	p.SetTracer(tr)
	p.SetDelay(clk.sleep)
	return p, tr, clk
}

func TestRun_SuccessfulSweep(t *testing.T) {
	// Sample order: minimum, maximum, one wait-for-motion probe, sweep.
	src := &scriptedSource{values: []int{100, 900, 150, 200, 400, 600, 905}}
	p, _, clk := newTestProcedure(src)

	points, err := p.Run()
	require.NoError(t, err)
	require.Len(t, points, 6)

	// Captured inputs: recorded minimum, the sweep samples, the recorded
	// maximum closing the table.
	assert.Equal(t, 100, points[0].In)
	assert.Equal(t, []int{200, 400, 600, 905}, []int{points[1].In, points[2].In, points[3].In, points[4].In})
	assert.Equal(t, 900, points[5].In)

	// Outputs are evenly spaced with 255/n truncation, ending at exactly 255.
	step := 255 / 6
	for i := 0; i < 5; i++ {
		assert.Equal(t, i*step, points[i].Out, "point %d", i)
	}
	assert.Equal(t, 255, points[5].Out)

	// Two settle delays, one sweep delay, one inter-sample delay per
	// non-final sweep sample.
	cfg := config.Default().Calibration
	var settles, sweeps, intervals int
	for _, d := range clk.delays {
		switch d {
		case cfg.SettleDelay:
			settles++
		case cfg.SweepDelay:
			sweeps++
		case cfg.SampleInterval:
			intervals++
		}
	}
	assert.Equal(t, 2, settles)
	assert.Equal(t, 1, sweeps)
	assert.Equal(t, 3, intervals)
}

func TestRun_WaitsForMotionOffZero(t *testing.T) {
	src := &scriptedSource{values: []int{0, 900, 0, 0, 300, 900}}
	p, _, clk := newTestProcedure(src)

	points, err := p.Run()
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 0, points[0].In, "recorded minimum may legitimately be zero")
	assert.Equal(t, 900, points[1].In)
	assert.Equal(t, 255, points[2].Out)

	var wakePolls int
	for _, d := range clk.delays {
		if d == wakePollInterval {
			wakePolls++
		}
	}
	assert.Equal(t, 2, wakePolls, "two zero probes before motion")
}

func TestRun_AbortsWhenTooSlow(t *testing.T) {
	cfg := config.Default().Calibration
	cfg.BufferSize = 5

	// Sweep never reaches the recorded maximum.
	values := []int{100, 900, 150}
	for i := 0; i < 20; i++ {
		values = append(values, 200)
	}
	src := &scriptedSource{values: values}

	p := New(src, &cfg)
	tr := &recordingTracer{}
	p.SetTracer(tr)
	p.SetDelay(func(time.Duration) {})

	points, err := p.Run()
	require.ErrorIs(t, err, ErrTooSlow)
	assert.Nil(t, points, "abort must not emit a table")

	joined := strings.Join(tr.lines, "\n")
	assert.Contains(t, joined, "too slow")
}

func TestRun_SilentWithoutTracer(t *testing.T) {
	src := &scriptedSource{values: []int{100, 900, 150, 905}}
	p := New(src, nil)
	p.SetDelay(func(time.Duration) {})

	points, err := p.Run()
	require.NoError(t, err)
	assert.NotEmpty(t, points, "absence of diagnostics must not affect the protocol")
}
