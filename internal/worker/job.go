package worker

import (
	"time"
)

// Job asks the worker for one backup run.
type Job struct {
	Reason    string // "schedule", "startup", "signal", ...
	Requested time.Time
}
