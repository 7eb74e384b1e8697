package filter

import (
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// DefaultResolution is the size of the valid input domain (10-bit ADC).
	DefaultResolution = 1024
	// DefaultActivityThreshold is the deviation (in raw counts) below which
	// the filter is allowed to sleep.
	DefaultActivityThreshold = 4

	// errorWeight is the fixed EMA weight for the tracked deviation.
	errorWeight = 0.4
)

// Source supplies raw analog readings on demand. A reading is expected to be
// within [0, resolution-1]; how it is obtained (hardware bridge, simulation,
// test fixture) is up to the implementation.
type Source interface {
	Sample() int
}

// Tracer receives diagnostic text from the filter and the calibration
// procedure. A nil tracer disables tracing without affecting filtering.
type Tracer interface {
	Emit(text string)
}

// Filter smooths a stream of noisy analog readings into a stable but
// responsive integer value. It combines an error-tracking EMA with a
// nonlinear snap curve, so small deviations are filtered aggressively while
// larger movements pass through almost unfiltered.
//
// A Filter is owned by a single caller and updated once per tick; it is not
// safe for concurrent use.
type Filter struct {
	id     int
	src    Source
	tracer Tracer

	sleepEnable    bool
	edgeSnapEnable bool
	snapMultiplier float32
	sleepEmphasis  float32
	threshold      int
	resolution     int

	byteOutput bool
	table      *Map
	fromMin    int
	fromMax    int
	toMin      int
	toMax      int

	raw            int
	smooth         float32
	seeded         bool
	errorEMA       float32
	sleeping       bool
	responsive     int
	prevResponsive int
	changed        bool
}

// New creates a filter for the sensor identified by id. The id is opaque to
// the filter; it is only passed through to diagnostics and to whatever
// sampling source the caller attaches. snapMultiplier is clamped to [0, 1].
func New(id int, sleepEnable, edgeSnapEnable bool, snapMultiplier float32) *Filter {
	f := &Filter{
		id:             id,
		sleepEnable:    sleepEnable,
		edgeSnapEnable: edgeSnapEnable,
		sleepEmphasis:  1,
		threshold:      DefaultActivityThreshold,
		resolution:     DefaultResolution,
	}
	f.SetSnapMultiplier(snapMultiplier)
	f.fromMin, f.fromMax = 0, f.resolution-1
	f.toMin, f.toMax = 0, 255
	return f
}

// SetSource attaches a sampling source used by Poll.
func (f *Filter) SetSource(src Source) { f.src = src }

// SetTracer attaches a diagnostics sink. Pass nil to disable tracing.
func (f *Filter) SetTracer(tr Tracer) { f.tracer = tr }

// SetSnapMultiplier sets how quickly the snap curve transitions from
// filtering to tracking. Values outside [0, 1] are silently clamped.
func (f *Filter) SetSnapMultiplier(m float32) {
	if m > 1 {
		m = 1
	}
	if m < 0 {
		m = 0
	}
	f.snapMultiplier = m
}

// SnapMultiplier returns the current snap multiplier.
func (f *Filter) SnapMultiplier() float32 { return f.snapMultiplier }

// SetActivityThreshold sets the deviation below which the filter sleeps.
func (f *Filter) SetActivityThreshold(t int) { f.threshold = t }

// SetResolution declares the size of the valid input domain, e.g. 1024 for a
// 10-bit ADC or 4096 for a 12-bit one. The default range remap follows it.
func (f *Filter) SetResolution(n int) {
	f.resolution = n
	f.fromMax = n - 1
}

// SetSleepEmphasis sets the multiplier applied to the snap factor while
// sleep is enabled. Historically this evaluated to exactly 1; the hook is
// kept tunable.
func (f *Filter) SetSleepEmphasis(m float32) { f.sleepEmphasis = m }

// EnableSleep allows the output to freeze once the tracked error drops below
// the activity threshold.
func (f *Filter) EnableSleep() { f.sleepEnable = true }

// DisableSleep keeps the filter permanently awake.
func (f *Filter) DisableSleep() {
	f.sleepEnable = false
	f.sleeping = false
}

// EnableEdgeSnap exaggerates readings near the rails so the output can reach
// true extremes and wake up from movement there. Only effective while sleep
// is enabled.
func (f *Filter) EnableEdgeSnap() { f.edgeSnapEnable = true }

// DisableEdgeSnap turns edge exaggeration off.
func (f *Filter) DisableEdgeSnap() { f.edgeSnapEnable = false }

// Seed initializes the smooth value explicitly instead of from the first
// observed sample.
func (f *Filter) Seed(v int) {
	f.smooth = float32(v)
	f.seeded = true
}

// Poll samples the attached source and runs one update tick. In byte-output
// mode the raw sample is remapped before filtering, matching ByteValue
// semantics end to end.
func (f *Filter) Poll() int {
	v := f.src.Sample()
	if f.byteOutput {
		v = f.mapValue(v)
	}
	return f.Update(v)
}

// Update runs one filtering tick with the given raw reading and returns the
// new responsive value.
func (f *Filter) Update(raw int) int {
	if !f.seeded {
		f.Seed(raw)
	}
	f.raw = raw
	f.prevResponsive = f.responsive
	f.responsive = f.responsiveValue(raw)
	f.changed = f.responsive != f.prevResponsive
	if f.changed && f.tracer != nil {
		f.tracer.Emit(fmt.Sprintf("sensor %d change: raw=%d responsive=%d", f.id, f.raw, f.responsive))
	}
	return f.responsive
}

func (f *Filter) responsiveValue(raw int) int {
	// With sleep and edge snap both on, drag near-rail readings a little
	// past the rails. The exaggerated deviation is what lets the output
	// reach true extremes and what wakes the filter near the edges; it is
	// deliberately not clamped before the diff.
	if f.sleepEnable && f.edgeSnapEnable {
		if raw < f.threshold {
			raw = raw*2 - f.threshold
		} else if raw > f.resolution-f.threshold {
			raw = raw*2 - f.resolution + f.threshold
		}
	}

	diff := math32.Abs(float32(raw) - f.smooth)

	// Track the signed deviation with a second EMA, every tick, sleeping or
	// not. The sleep test below reads its magnitude: a consistent drift in
	// one direction wakes the filter while oscillating noise of the same
	// size cancels out and does not.
	f.errorEMA += ((float32(raw) - f.smooth) - f.errorEMA) * errorWeight

	if f.sleepEnable {
		f.sleeping = math32.Abs(f.errorEMA) < float32(f.threshold)
	}

	// While sleeping, freeze the output on the current smooth value.
	if f.sleepEnable && f.sleeping {
		return int(f.smooth)
	}

	snap := snapCurve(diff * f.snapMultiplier)
	if f.sleepEnable {
		snap *= f.sleepEmphasis
	}

	f.smooth += (float32(raw) - f.smooth) * snap

	if f.smooth < 0 {
		f.smooth = 0
	} else if limit := float32(f.resolution - 1); f.smooth > limit {
		f.smooth = limit
	}

	return int(f.smooth)
}

// snapCurve maps a deviation magnitude to a blend factor in [0, 1]: near
// zero for tiny deviations (noise) and saturating to one for x > 1
// (intentional movement). Derived from the hyperbola 1/(x+1).
func snapCurve(x float32) float32 {
	y := 1 / (x + 1)
	y = (1 - y) * 2
	if y > 1 {
		return 1
	}
	return y
}

// Value returns the last responsive value.
func (f *Filter) Value() int { return f.responsive }

// RawValue returns the last raw reading fed to Update.
func (f *Filter) RawValue() int { return f.raw }

// SmoothValue returns the current floating-point smooth value.
func (f *Filter) SmoothValue() float32 { return f.smooth }

// ErrorEMA returns the tracked signed deviation estimate.
func (f *Filter) ErrorEMA() float32 { return f.errorEMA }

// IsSleeping reports whether the output is currently frozen.
func (f *Filter) IsSleeping() bool { return f.sleeping }

// HasChanged reports whether the last update produced a different responsive
// value than the one before it.
func (f *Filter) HasChanged() bool { return f.changed }
