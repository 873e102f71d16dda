package softengine

// fader is a linear gain ramp positioned on the engine frame clock. Before start it
// holds the gain that was current when the fade was set.
type fader struct {
	prev   float32
	from   float32
	to     float32
	start  uint64
	length uint64
}

func newFader() fader {
	return fader{prev: 1, from: 1, to: 1}
}

// set replaces the ramp. A negative from starts at the gain current at now.
func (f *fader) set(now uint64, from, to float32, length, start uint64) {
	cur := f.gainAt(now)
	if from < 0 {
		from = cur
	}
	f.prev = cur
	f.from = from
	f.to = to
	f.start = start
	f.length = length
}

func (f *fader) gainAt(t uint64) float32 {
	switch {
	case t < f.start:
		return f.prev
	case f.length == 0 || t-f.start >= f.length:
		return f.to
	default:
		pos := float32(t-f.start) / float32(f.length)
		return f.from + (f.to-f.from)*pos
	}
}
