package date

import (
	"encoding/json"
	"iter"
	"slices"
	"sort"
)

// Series stores a chronological series of float64 values, one per calendar day.
// Days are unique and the series is always sorted.
type Series struct {
	days   []Date
	values []float64
}

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.days) }

// chronological is a private implementation to keep the series sorted by day.
type chronological struct{ *Series }

func (c chronological) Less(i, j int) bool { return c.days[i].Before(c.days[j]) }
func (c chronological) Swap(i, j int) {
	c.days[i], c.days[j] = c.days[j], c.days[i]
	c.values[i], c.values[j] = c.values[j], c.values[i]
}

func (s *Series) sort() { sort.Sort(chronological{s}) }

// Append adds a point to the series. An existing value at that day is overwritten.
func (s *Series) Append(on Date, v float64) *Series {
	if i := slices.Index(s.days, on); i >= 0 {
		// Last write wins on a duplicate day.
		s.values[i] = v
		return s
	}
	s.days, s.values = append(s.days, on), append(s.values, v)
	s.sort()
	return s
}

// Merge appends all points from o into s, overwriting duplicate days.
func (s *Series) Merge(o *Series) *Series {
	for on, v := range o.Values() {
		s.Append(on, v)
	}
	return s
}

// Values returns an iterator over all day/value pairs, in chronological order.
func (s *Series) Values() iter.Seq2[Date, float64] {
	return func(yield func(Date, float64) bool) {
		for i, on := range s.days {
			if !yield(on, s.values[i]) {
				return
			}
		}
	}
}

// Get returns the value at 'day' and true, or 0 and false.
func (s *Series) Get(day Date) (float64, bool) {
	if i := slices.Index(s.days, day); i >= 0 {
		return s.values[i], true
	}
	return 0, false
}

// Latest returns the latest day and value in the series, or zero values when empty.
func (s *Series) Latest() (Date, float64) {
	last := len(s.days) - 1
	if last < 0 {
		return Date{}, 0
	}
	return s.days[last], s.values[last]
}

// Nearest returns the value at the day closest to 'day', in either direction.
// When two days are equally close the earlier one wins. Returns false on an
// empty series.
func (s *Series) Nearest(day Date) (float64, bool) {
	if len(s.days) == 0 {
		return 0, false
	}
	best, dist := 0, -1
	for i, on := range s.days {
		d := day.Sub(on)
		if d < 0 {
			d = -d
		}
		if dist < 0 || d < dist {
			best, dist = i, d
		}
	}
	return s.values[best], true
}

// Mul multiplies two series elementwise, intersecting on the shorter series'
// days: a day is kept only when both series have a value for it.
func (s *Series) Mul(o *Series) *Series {
	shorter, longer := s, o
	if longer.Len() < shorter.Len() {
		shorter, longer = longer, shorter
	}
	out := new(Series)
	for on, v := range shorter.Values() {
		if w, ok := longer.Get(on); ok {
			out.Append(on, v*w)
		}
	}
	return out
}

// MarshalJSON encodes the series as a day-keyed object.
func (s *Series) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(s.days))
	for i, on := range s.days {
		m[on.String()] = s.values[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a day-keyed object into a sorted series.
func (s *Series) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.days, s.values = s.days[:0], s.values[:0]
	for k, v := range m {
		on, err := Parse(k)
		if err != nil {
			return err
		}
		s.days, s.values = append(s.days, on), append(s.values, v)
	}
	s.sort()
	return nil
}

var _ json.Marshaler = (*Series)(nil)
var _ json.Unmarshaler = (*Series)(nil)
