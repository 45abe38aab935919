package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minTrackable = 1 // microseconds
	maxTrackable = int64(10 * time.Minute / time.Microsecond)
	sigFigures   = 3
)

// Timings summarises control durations of one run.
type Timings struct {
	Count int64
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

type recorder struct {
	hist *hdrhistogram.Histogram
}

func newRecorder() *recorder {
	return &recorder{hist: hdrhistogram.New(minTrackable, maxTrackable, sigFigures)}
}

func (r *recorder) record(d time.Duration) {
	us := d.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}
	_ = r.hist.RecordValue(us)
}

func (r *recorder) timings() Timings {
	if r.hist.TotalCount() == 0 {
		return Timings{}
	}
	return Timings{
		Count: r.hist.TotalCount(),
		P50:   time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(r.hist.ValueAtQuantile(95)) * time.Microsecond,
		Max:   time.Duration(r.hist.Max()) * time.Microsecond,
	}
}
