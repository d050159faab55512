package throttle

import (
	"log/slog"
	"time"
)

// Report is the periodic hit-rate telemetry snapshot. TotalCalls counts every
// invocation since the previous report; PassedThroughCalls counts the subset
// that dispatched a producer call. Their difference is the number of calls the
// cache absorbed.
type Report struct {
	TotalCalls         int64 `json:"totalCalls"`
	PassedThroughCalls int64 `json:"passedThroughCalls"`
}

// ReportHandler receives periodic hit-rate reports. It is called from the
// reporter's goroutine; slow handlers delay subsequent reports.
type ReportHandler func(Report)

// reporter periodically snapshots the wrapper's counters and hands the report
// to the handler. It runs for the lifetime of the wrapper and is stopped by
// Wrapper.Close.
type reporter struct {
	period   time.Duration
	handler  ReportHandler
	snapshot func() Report
	logger   *slog.Logger

	shutdown chan struct{}
	done     chan struct{}
}

func newReporter(period time.Duration, handler ReportHandler, snapshot func() Report, logger *slog.Logger) *reporter {
	r := &reporter{
		period:   period,
		handler:  handler,
		snapshot: snapshot,
		logger:   logger,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *reporter) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdown:
			return
		case <-ticker.C:
			report := r.snapshot()
			r.logger.Debug("hit rate report",
				"totalCalls", report.TotalCalls,
				"passedThroughCalls", report.PassedThroughCalls)
			if r.handler != nil {
				r.handler(report)
			}
		}
	}
}

// stop terminates the reporter goroutine and waits for it to finish.
func (r *reporter) stop() {
	select {
	case <-r.shutdown:
		// Already stopped
	default:
		close(r.shutdown)
	}
	<-r.done
}
