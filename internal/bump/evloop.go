package bump

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/logfields"
)

// EvLoop runs update runs periodically and on manual triggers.
// One run executes at a time, a trigger received during an active run is
// executed when the run finished.
type EvLoop struct {
	logger   *zap.Logger
	bumper   *Bumper
	interval time.Duration

	triggerChan chan []string
	stopChan    chan struct{}
	stopOnce    sync.Once
	doneChan    chan struct{}

	lock       sync.Mutex
	lastReport *RunReport
	lastErr    error
	nextRun    time.Time
}

func NewEventLoop(bumper *Bumper, interval time.Duration) *EvLoop {
	return &EvLoop{
		logger:      zap.L().Named("event_loop"),
		bumper:      bumper,
		interval:    interval,
		triggerChan: make(chan []string, 1),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start runs an update run immediately and then periodically and on
// triggers, until Stop is called.
func (e *EvLoop) Start() {
	defer close(e.doneChan)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-e.stopChan
		cancel()
	}()

	e.logger.Info(
		"event loop started",
		logfields.Event("event_loop_started"),
		zap.Duration("run_interval", e.interval),
	)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.run(ctx, nil)
	e.setNextRun(time.Now().Add(e.interval))

	for {
		select {
		case <-e.stopChan:
			e.logger.Info("event loop terminated", logfields.Event("event_loop_terminated"))
			return

		case <-ticker.C:
			e.run(ctx, nil)
			e.setNextRun(time.Now().Add(e.interval))

		case architectures := <-e.triggerChan:
			e.logger.Info(
				"update run triggered manually",
				logfields.Event("run_triggered"),
				zap.Strings("architectures", architectures),
			)

			e.run(ctx, architectures)
		}
	}
}

func (e *EvLoop) run(ctx context.Context, architectures []string) {
	if ctx.Err() != nil {
		return
	}

	report, err := e.bumper.Run(ctx, architectures)

	e.lock.Lock()
	defer e.lock.Unlock()

	e.lastErr = err
	if err != nil {
		e.logger.Error("update run failed", logfields.Event("run_failed"), zap.Error(err))
		return
	}

	e.lastReport = report
}

// Trigger schedules an update run that only looks up the given
// architectures, or all configured ones when architectures is empty.
// It returns false when a run is already scheduled.
func (e *EvLoop) Trigger(architectures []string) bool {
	select {
	case e.triggerChan <- architectures:
		return true
	default:
		return false
	}
}

// Stop terminates the event loop and cancels an active run.
// It blocks until the loop terminated.
func (e *EvLoop) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	<-e.doneChan
}

// LastReport returns the report of the newest successful run and the error
// of the newest run, if it failed.
func (e *EvLoop) LastReport() (*RunReport, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.lastReport, e.lastErr
}

// NextRun returns the time of the next periodic run.
func (e *EvLoop) NextRun() time.Time {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.nextRun
}

func (e *EvLoop) setNextRun(t time.Time) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.nextRun = t
}
