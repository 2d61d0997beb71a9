package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"oi-signal-engine/src/analysis"
	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/metrics"
	"oi-signal-engine/src/models"

	"github.com/google/uuid"
)

// storeAggregateLimit bounds the trailing-window read used when analytics
// are rebuilt from the store.
const storeAggregateLimit = 1000

var _ interfaces.ISignalEngine = (*SignalEngine)(nil)

// Deps are the collaborators of the engine. Publisher and Exchanger are optional.
type Deps struct {
	Calendar  interfaces.IMarketCalendar
	Catalog   interfaces.IInstrumentCatalog
	Ticks     interfaces.ITickStore
	Store     interfaces.ISignalStore
	Publisher interfaces.ISignalPublisher
	Exchanger interfaces.IDataExchanger

	// Sleep replaces the inter-cycle wait. It must return early once ctx is
	// done or wake is closed.
	Sleep func(ctx context.Context, d time.Duration, wake <-chan struct{})
}

// run is one Start..Stop lifetime of the loop.
type run struct {
	stop chan struct{}
	done chan struct{}
}

func (r *run) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// SignalEngine runs the periodic OI analysis loop and owns the in-memory
// "current signals" cache.
type SignalEngine struct {
	Config *models.MConfig
	Logger *logger.Logger

	deps     Deps
	analysis *analysis.AnalysisFacade
	backoff  helpers.BackoffPolicy

	running atomic.Bool
	current atomic.Pointer[[]models.MOISignal]

	mu        sync.Mutex
	loopRun   *run
	lastRun   *time.Time
	lastCycle string
	lastError string
	completed int64

	// Now is the wall clock. Tests replace it.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

func NewSignalEngine(cfg *models.MConfig, deps Deps, log *logger.Logger) *SignalEngine {
	e := &SignalEngine{
		Config:   cfg,
		Logger:   log,
		deps:     deps,
		analysis: analysis.NewAnalysisFacade(cfg, deps.Catalog, deps.Ticks, log),
		backoff: helpers.BackoffPolicy{
			Transient:     cfg.Engine.ErrorBackoff(),
			Configuration: cfg.Engine.ConfigErrorBackoff(),
		},
		Now: time.Now,
	}
	e.analysis.Analyzer.Now = e.now
	empty := []models.MOISignal{}
	e.current.Store(&empty)
	return e
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the loop. A second Start while running is a no-op.
func (e *SignalEngine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		e.Logger.Warning("Engine already running")
		return
	}

	r := &run{stop: make(chan struct{}), done: make(chan struct{})}
	e.mu.Lock()
	e.loopRun = r
	e.mu.Unlock()

	metrics.SetRunning(true)
	e.Logger.Info("Signal engine started (underlyings: %v)", e.Config.Engine.SupportedUnderlyings)

	go e.loop(ctx, r)
}

// Stop asks the loop to exit after the current cycle and wakes it if sleeping.
func (e *SignalEngine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.mu.Lock()
	r := e.loopRun
	e.mu.Unlock()
	if r != nil {
		close(r.stop)
	}
	e.Logger.Info("Signal engine stop requested")
}

// Wait blocks until the loop goroutine has exited.
func (e *SignalEngine) Wait() {
	e.mu.Lock()
	r := e.loopRun
	e.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

func (e *SignalEngine) IsRunning() bool {
	return e.running.Load()
}

// -----------------------------------------------------------------------------

func (e *SignalEngine) loop(ctx context.Context, r *run) {
	defer close(r.done)
	defer metrics.SetRunning(false)

	for !r.stopped() {
		if ctx.Err() != nil {
			e.running.CompareAndSwap(true, false)
			break
		}

		wait := e.iterate(ctx)
		if r.stopped() {
			break
		}
		e.sleep(ctx, wait, r.stop)
	}
	e.Logger.Info("Signal engine stopped")
}

// iterate runs one loop pass and returns how long to idle afterwards.
func (e *SignalEngine) iterate(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("Analysis cycle panicked: %v", r)
			e.recordFailure(fmt.Errorf("panic: %v", r))
			wait = e.backoff.Transient
		}
	}()

	active := e.deps.Calendar.ActiveExchanges()
	metrics.ActiveExchanges.Set(float64(len(active)))
	if len(active) == 0 {
		metrics.CyclesTotal.WithLabelValues("closed").Inc()
		e.Logger.Debug("All markets closed, next check in %v", e.Config.Engine.ClosedMarketPoll())
		return e.Config.Engine.ClosedMarketPoll()
	}

	if err := e.RunCycle(ctx); err != nil {
		kind := helpers.Classify(err)
		wait = e.backoff.For(kind)
		e.Logger.Error("Analysis cycle failed (%s): %v. Retrying in %v", kind, err, wait)
		e.recordFailure(err)
		return wait
	}
	return e.Config.Engine.AnalysisInterval()
}

func (e *SignalEngine) sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	if e.deps.Sleep != nil {
		e.deps.Sleep(ctx, d, wake)
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-wake:
	case <-ctx.Done():
	}
}

// -----------------------------------------------------------------------------
// Cycle
// -----------------------------------------------------------------------------

// RunCycle executes one analysis pass: select the universe, analyse it, persist
// and cache the actionable signals, then roll them up per underlying. Write
// failures are logged and do not fail the cycle.
func (e *SignalEngine) RunCycle(ctx context.Context) error {
	started := e.now()
	cycleID := uuid.NewString()

	universe, err := e.streamingUniverse(ctx, started)
	if err != nil {
		return helpers.WrapDependency("streaming universe", err)
	}
	tokens := universe.Tokens()
	e.Logger.Info("Cycle %s: analysing %d tokens (%d fut, %d ce, %d pe)",
		cycleID, len(tokens), len(universe.Futures), len(universe.OptionsCE), len(universe.OptionsPE))

	result, err := e.analysis.Analyze(ctx, tokens, started)
	if err != nil {
		return err
	}

	kept := result.Kept
	for i := range kept {
		kept[i].CycleID = cycleID
		metrics.SignalsTotal.WithLabelValues(kept[i].SignalStrength, kept[i].SignalType).Inc()
	}

	var writeErrs []error
	writeErrs = append(writeErrs, e.persistSignals(ctx, kept))
	e.updateCache(kept)

	analytics := result.Analytics
	if e.Config.Engine.AggregateFromStore {
		analytics = e.aggregateFromStore(ctx, started, analytics)
	}
	for i := range analytics {
		analytics[i].CycleID = cycleID
	}
	writeErrs = append(writeErrs, e.persistAnalytics(ctx, analytics))
	writeErrs = append(writeErrs, e.publish(ctx, kept, analytics))

	e.broadcast(cycleID, started, analytics)

	metrics.RecordCycle(started)
	e.recordSuccess(cycleID, started, errors.Join(writeErrs...))

	e.Logger.Info("Cycle %s: %d signal(s) generated, %d kept, %d analytics in %v",
		cycleID, result.Generated, len(kept), len(analytics), time.Since(started).Round(time.Millisecond))
	return nil
}

func (e *SignalEngine) streamingUniverse(ctx context.Context, at time.Time) (models.MStreamingUniverse, error) {
	ctx, cancel := helpers.WithTimeout(ctx, e.Config.Engine.DependencyTimeout())
	defer cancel()
	return e.deps.Catalog.ListStreamingUniverse(ctx, e.Config.Engine.SupportedUnderlyings, at)
}

// -----------------------------------------------------------------------------

func (e *SignalEngine) persistSignals(ctx context.Context, signals []models.MOISignal) error {
	var errs []error
	for _, s := range signals {
		if err := e.write(ctx, func(ctx context.Context) error { return e.deps.Store.AppendSignal(ctx, s) }); err != nil {
			metrics.WriteFailures.WithLabelValues("signal_store").Inc()
			e.Logger.Error("Failed to persist signal %s: %v", s.Token, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return helpers.NewPersistenceError(fmt.Sprintf("%d/%d signal write(s) failed", len(errs), len(signals)), errors.Join(errs...))
	}
	return nil
}

func (e *SignalEngine) persistAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error {
	var errs []error
	for _, a := range analytics {
		if err := e.write(ctx, func(ctx context.Context) error { return e.deps.Store.AppendAnalytics(ctx, a) }); err != nil {
			metrics.WriteFailures.WithLabelValues("analytics_store").Inc()
			e.Logger.Error("Failed to persist analytics for %s: %v", a.Underlying, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return helpers.NewPersistenceError(fmt.Sprintf("%d/%d analytics write(s) failed", len(errs), len(analytics)), errors.Join(errs...))
	}
	return nil
}

func (e *SignalEngine) write(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := helpers.WithTimeout(ctx, e.Config.Engine.DependencyTimeout())
	defer cancel()
	return fn(ctx)
}

// aggregateFromStore rebuilds analytics from every signal stored during the
// last analysis interval. On a read failure the in-cycle rollup is kept.
func (e *SignalEngine) aggregateFromStore(ctx context.Context, at time.Time, fallback []models.MOIAnalytics) []models.MOIAnalytics {
	ctx, cancel := helpers.WithTimeout(ctx, e.Config.Engine.DependencyTimeout())
	defer cancel()

	window, err := e.deps.Store.QuerySignals(ctx, models.MSignalFilter{
		Since: at.Add(-e.Config.Engine.AnalysisInterval()),
		Limit: storeAggregateLimit,
	})
	if err != nil {
		e.Logger.Warning("Trailing-window read failed, using this cycle's signals: %v", err)
		return fallback
	}
	return e.analysis.Aggregator.Aggregate(window, at)
}

func (e *SignalEngine) publish(ctx context.Context, signals []models.MOISignal, analytics []models.MOIAnalytics) error {
	if e.deps.Publisher == nil {
		return nil
	}
	ctx, cancel := helpers.WithTimeout(ctx, e.Config.Engine.DependencyTimeout())
	defer cancel()

	err := errors.Join(
		e.deps.Publisher.PublishSignals(ctx, signals),
		e.deps.Publisher.PublishAnalytics(ctx, analytics),
	)
	if err != nil {
		metrics.WriteFailures.WithLabelValues("publisher").Inc()
		e.Logger.Error("Failed to publish cycle output: %v", err)
		return helpers.NewPersistenceError("publish", err)
	}
	return nil
}

// SetExchanger attaches the live listener after construction, for hosts that
// build the engine before the server that broadcasts its output.
func (e *SignalEngine) SetExchanger(x interfaces.IDataExchanger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deps.Exchanger = x
}

func (e *SignalEngine) broadcast(cycleID string, at time.Time, analytics []models.MOIAnalytics) {
	e.mu.Lock()
	x := e.deps.Exchanger
	e.mu.Unlock()
	if x == nil {
		return
	}
	x.Broadcast(models.MSignalSnapshot{
		Type:      models.SnapshotUpdate,
		CycleID:   cycleID,
		Timestamp: at.Unix(),
		Signals:   e.CurrentSignals(0),
		Analytics: append([]models.MOIAnalytics(nil), analytics...),
	})
}

// -----------------------------------------------------------------------------
// Cache and status
// -----------------------------------------------------------------------------

// updateCache replaces the current signals with the top of kept. Readers
// holding the previous slice are unaffected.
func (e *SignalEngine) updateCache(kept []models.MOISignal) {
	n := min(len(kept), max(0, e.Config.Engine.CurrentSignalsLimit))
	top := make([]models.MOISignal, n)
	copy(top, kept[:n])
	e.current.Store(&top)
}

// CurrentSignals returns a copy of the cached signals. limit <= 0 returns all.
func (e *SignalEngine) CurrentSignals(limit int) []models.MOISignal {
	cached := *e.current.Load()
	n := len(cached)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.MOISignal, n)
	copy(out, cached[:n])
	return out
}

func (e *SignalEngine) ActiveExchanges() []string {
	return e.deps.Calendar.ActiveExchanges()
}

func (e *SignalEngine) MarketStatus() models.MMarketStatus {
	return e.deps.Calendar.DetailedStatus()
}

// Status is safe to call from any goroutine.
func (e *SignalEngine) Status() models.MEngineStatus {
	st := models.MEngineStatus{
		IsRunning:          e.running.Load(),
		ActiveExchanges:    e.ActiveExchanges(),
		CurrentSignalCount: len(*e.current.Load()),
		AnalysisInterval:   intervalLabel(e.Config.Engine.AnalysisInterval()),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastRun != nil {
		ts := e.lastRun.Unix()
		st.LastAnalysisTime = &ts
	}
	st.LastCycleID = e.lastCycle
	st.LastError = e.lastError
	st.CyclesCompleted = e.completed
	return st
}

// LatestSnapshot is what a newly connected listener is shown first.
func (e *SignalEngine) LatestSnapshot() models.MSignalSnapshot {
	e.mu.Lock()
	cycleID := e.lastCycle
	var ts int64
	if e.lastRun != nil {
		ts = e.lastRun.Unix()
	}
	e.mu.Unlock()

	return models.MSignalSnapshot{
		Type:      models.SnapshotInitial,
		CycleID:   cycleID,
		Timestamp: ts,
		Signals:   e.CurrentSignals(0),
		Analytics: []models.MOIAnalytics{},
	}
}

func (e *SignalEngine) recordSuccess(cycleID string, at time.Time, writeErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = &at
	e.lastCycle = cycleID
	e.completed++
	e.lastError = ""
	if writeErr != nil {
		e.lastError = writeErr.Error()
	}
}

func (e *SignalEngine) recordFailure(err error) {
	metrics.CyclesTotal.WithLabelValues("error").Inc()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastError = err.Error()
}

func (e *SignalEngine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// intervalLabel renders whole minutes as "5m" and anything else as a Go duration.
func intervalLabel(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}
