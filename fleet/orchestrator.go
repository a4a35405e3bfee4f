// Package fleet runs an executor against many targets concurrently and aggregates the outcomes
package fleet

import (
	"context"
	"time"

	"code.linksmart.eu/dt/pupdate/executor"
	"code.linksmart.eu/dt/pupdate/model"
	"code.linksmart.eu/dt/pupdate/outcome"
	"code.linksmart.eu/dt/pupdate/progress"
	log "github.com/sirupsen/logrus"
)

type Orchestrator struct {
	executor executor.Executor
	recorder outcome.Recorder
	reporter progress.Reporter

	// Workers bounds the number of concurrently running units (0: unbounded)
	Workers int
	// RunID is attached to log entries and the summary
	RunID string

	now func() time.Time
}

// New returns an orchestrator. Nil recorder or reporter disable recording or reporting.
func New(e executor.Executor, r outcome.Recorder, p progress.Reporter) *Orchestrator {
	if r == nil {
		r = outcome.Discard
	}
	if p == nil {
		p = progress.Nop
	}
	return &Orchestrator{
		executor: e,
		recorder: r,
		reporter: p,
		now:      time.Now,
	}
}

type unitResult struct {
	index     int
	succeeded bool
}

// Run updates all targets and blocks until every unit has reported back or ctx is done.
//	Succeeded and Failed follow the order of targets, a repeated target runs once.
//	On interruption the targets without a result are listed in Unfinished.
//	Running units are not cancelled.
func (o *Orchestrator) Run(ctx context.Context, targets []string) model.Summary {
	start := o.now()
	targets = model.UniqueTargets(targets)
	summary := model.Summary{
		RunID:     o.RunID,
		Succeeded: []string{},
		Failed:    []string{},
	}

	// nothing to run
	if len(targets) == 0 {
		summary.Duration = o.now().Sub(start)
		return summary
	}

	total := len(targets)
	log.WithField("run", o.RunID).Debugf("run() Dispatching %d units", total)

	// buffered, so that units never block on an abandoned collector
	resCh := make(chan unitResult, total)
	unitCtx := context.WithoutCancel(ctx)

	var slots chan struct{}
	if o.Workers > 0 {
		slots = make(chan struct{}, o.Workers)
	}
	for i := range targets {
		go o.unit(ctx, unitCtx, slots, i, targets[i], resCh)
	}

	// index -> verdict; nil until the unit reports
	verdicts := make([]*bool, total)
	completed := 0
collect:
	for completed < total {
		select {
		case res := <-resCh:
			completed++
			succeeded := res.succeeded
			verdicts[res.index] = &succeeded
			o.reporter.OverallProgress(completed, total)
		case <-ctx.Done():
			log.WithField("run", o.RunID).Printf("Interrupted with %d/%d units completed", completed, total)
			summary.Interrupted = true
			break collect
		}
	}

	for i, v := range verdicts {
		switch {
		case v == nil:
			summary.Unfinished = append(summary.Unfinished, targets[i])
		case *v:
			summary.Succeeded = append(summary.Succeeded, targets[i])
		default:
			summary.Failed = append(summary.Failed, targets[i])
		}
	}
	summary.Total = len(summary.Succeeded) + len(summary.Failed)
	summary.Duration = o.now().Sub(start)
	return summary
}

// unit executes, records and reports one target, then sends the verdict to the collector
func (o *Orchestrator) unit(ctx, unitCtx context.Context, slots chan struct{}, index int, target string, resCh chan<- unitResult) {
	if slots != nil {
		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
		case <-ctx.Done():
			// interrupted before a worker was free, never started
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
	logger := log.WithFields(log.Fields{"run": o.RunID, "target": target})

	o.reporter.TargetStarted(target)

	out, err := o.executor.Execute(unitCtx, target)
	if err != nil {
		logger.Warnf("Transport error: %s", err)
		out.Succeeded = false
	}
	out.Target = target

	if err := o.recorder.Record(out); err != nil {
		logger.Warnf("%s", err)
	}

	o.reporter.TargetFinished(target, out.Succeeded, out.Elapsed())
	logger.Debugf("unit() Finished with exit code %d", out.ExitCode)

	resCh <- unitResult{index: index, succeeded: out.Succeeded}
}
