package app

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunStats counts per-record outcomes of one job run.
type RunStats struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Sent    int `json:"sent"`
	FanOut  int `json:"fan_out"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Add accumulates o into s. Used when one job runs several rules.
func (s *RunStats) Add(o RunStats) {
	s.Scanned += o.Scanned
	s.Created += o.Created
	s.Sent += o.Sent
	s.FanOut += o.FanOut
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

func (s RunStats) Fields() logrus.Fields {
	return logrus.Fields{
		"scanned": s.Scanned,
		"created": s.Created,
		"sent":    s.Sent,
		"fan_out": s.FanOut,
		"skipped": s.Skipped,
		"failed":  s.Failed,
	}
}

// isolate runs one record's work and turns a panic into an error so a single malformed
// record cannot abort the batch.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing record: %v", r)
		}
	}()
	return fn()
}
