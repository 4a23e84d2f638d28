package results

import "math"

// SensorSummary aggregates one sensor's series.
type SensorSummary struct {
	Sensor     int     `json:"sensor"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StepsAbove int     `json:"steps_above"`
}

// Summarize computes per-sensor statistics. StepsAbove counts time steps whose
// illuminance is at least threshold.
func (m *Matrix) Summarize(threshold float64) ([]SensorSummary, error) {
	out := make([]SensorSummary, 0, m.Sensors())
	for i := range m.Sensors() {
		s := SensorSummary{Sensor: i, Min: math.Inf(1), Max: math.Inf(-1)}
		var sum float64
		var n int
		for v := range m.Series(i) {
			s.Min = min(s.Min, v)
			s.Max = max(s.Max, v)
			sum += v
			n++
			if v >= threshold {
				s.StepsAbove++
			}
		}
		if n == 0 {
			s.Min, s.Max = 0, 0
		} else {
			s.Mean = sum / float64(n)
		}
		out = append(out, s)
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
