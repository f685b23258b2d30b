package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule describes the external cron trigger that invokes the job. The job
// never schedules itself; this only answers "when is the next run" for the
// report.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// Parse accepts a standard five-field cron expression or a descriptor such as
// "@daily". CI cron triggers run in UTC, so expressions are read in UTC
// unless they carry a CRON_TZ= prefix.
func Parse(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	spec := expr
	if !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=UTC " + spec
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &Schedule{expr: expr, sched: s}, nil
}

// Next returns the first activation strictly after now, in now's location.
func (s *Schedule) Next(now time.Time) time.Time {
	return s.sched.Next(now).In(now.Location())
}

func (s *Schedule) String() string { return s.expr }
