package filter

// Breakpoint is a single (input, output) pair of a piecewise-linear
// calibration table.
type Breakpoint struct {
	In  int
	Out int
}

// Map is a piecewise-linear lookup table translating one integer range into
// another. Inputs are expected to be strictly increasing; that is a
// precondition on the data supplied, not validated here. Breakpoint counts
// are small (tens), so lookups scan linearly.
type Map struct {
	points []Breakpoint
}

// NewMap builds a map from an owned copy of the given breakpoints. At least
// two breakpoints are needed for interpolation to be meaningful.
func NewMap(points []Breakpoint) *Map {
	m := &Map{points: make([]Breakpoint, len(points))}
	copy(m.points, points)
	return m
}

// Breakpoints returns a copy of the table.
func (m *Map) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(m.points))
	copy(out, m.points)
	return out
}

// Lookup translates val through the table. Values at or outside the ends
// return the end outputs; exact breakpoint hits return their output exactly;
// everything else is linearly interpolated with integer truncation. A
// zero-width interval falls back to its left breakpoint instead of dividing
// by zero.
func (m *Map) Lookup(val int) int {
	pts := m.points
	if len(pts) == 0 {
		return val
	}
	if val <= pts[0].In {
		return pts[0].Out
	}
	last := len(pts) - 1
	if val >= pts[last].In {
		return pts[last].Out
	}

	pos := 1 // pts[0] already tested
	for val > pts[pos].In {
		pos++
	}
	if val == pts[pos].In {
		return pts[pos].Out
	}

	prev, next := pts[pos-1], pts[pos]
	if next.In == prev.In {
		return prev.Out
	}
	return (val-prev.In)*(next.Out-prev.Out)/(next.In-prev.In) + prev.Out
}

// SetCalibration replaces the active calibration table with an owned copy of
// the given breakpoints. Supply at least two; the previous table is
// discarded wholesale.
func (f *Filter) SetCalibration(points []Breakpoint) {
	f.table = NewMap(points)
}

// ClearCalibration removes the active table, restoring the two-point range
// remap fallback.
func (f *Filter) ClearCalibration() { f.table = nil }

// Calibration returns the active table, or nil when the range fallback is in
// effect.
func (f *Filter) Calibration() *Map { return f.table }

// SetRange configures the two-point remap used when no calibration table is
// set: [fromMin, fromMax] maps linearly onto [toMin, toMax].
func (f *Filter) SetRange(fromMin, fromMax, toMin, toMax int) {
	f.fromMin, f.fromMax = fromMin, fromMax
	f.toMin, f.toMax = toMin, toMax
}

// SetByteOutput switches the filter between raw-range output and byte-mapped
// output. In byte mode Poll remaps the raw sample before filtering and Value
// is already in the destination range.
func (f *Filter) SetByteOutput(enabled bool) { f.byteOutput = enabled }

// ByteValue returns the responsive value in the destination range. In byte
// mode the value already is; otherwise it is remapped here.
func (f *Filter) ByteValue() int {
	if f.byteOutput {
		return f.responsive
	}
	return f.mapValue(f.responsive)
}

// mapValue translates val through the calibration table when one is set, or
// through the configured range remap otherwise.
func (f *Filter) mapValue(val int) int {
	if f.table != nil {
		return f.table.Lookup(val)
	}
	return rangeMap(val, f.fromMin, f.fromMax, f.toMin, f.toMax)
}

// rangeMap linearly remaps val from [fromMin, fromMax] to [toMin, toMax]
// with integer truncation. A degenerate source range returns toMin.
func rangeMap(val, fromMin, fromMax, toMin, toMax int) int {
	if fromMax == fromMin {
		return toMin
	}
	return (val-fromMin)*(toMax-toMin)/(fromMax-fromMin) + toMin
}
