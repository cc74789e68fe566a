// Package perfstats accumulates the counts and timings that a batch run reports when it finishes.
package perfstats

import (
	"fmt"
	"time"
)

// Int64Accumulator tracks the count, total, and range of a series of integer samples
// (eg frames per video, or candidates per frame).
type Int64Accumulator struct {
	Samples int64
	Total   int64
	Min     int64 // Only valid when Samples > 0
	Max     int64 // Only valid when Samples > 0
}

func (a *Int64Accumulator) AddSample(v int64) {
	if a.Samples == 0 {
		a.Min = v
		a.Max = v
	} else {
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	a.Samples++
	a.Total += v
}

func (a *Int64Accumulator) Average() float64 {
	if a.Samples == 0 {
		return 0
	}
	return float64(a.Total) / float64(a.Samples)
}

// eg "3 samples, range 12 - 150"
func (a *Int64Accumulator) String() string {
	if a.Samples == 0 {
		return "0 samples"
	}
	return fmt.Sprintf("%v samples, range %v - %v", a.Samples, a.Min, a.Max)
}

// TimeAccumulator sums up how long something took, over many calls
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

// Time a function call, and add it as a sample.
// The sample is recorded even if f fails.
func (a *TimeAccumulator) Time(f func() error) error {
	start := time.Now()
	err := f()
	a.AddSample(time.Since(start))
	return err
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return a.Total / time.Duration(a.Samples)
}

// eg "120 samples, average 45.2ms"
func (a *TimeAccumulator) String() string {
	return fmt.Sprintf("%v samples, average %v", a.Samples, a.Average().Round(time.Microsecond))
}
