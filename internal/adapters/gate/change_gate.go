package gate

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eleven-am/meshview/internal/domain"
)

// drainPollInterval is the granularity at which InitiateShutdown re-checks
// an in-flight change while draining.
const drainPollInterval = 100 * time.Millisecond

// noChange marks the last-change timestamp as "never", so a freshly built
// gate does not start inside a debounce window.
const noChange = int64(-1)

// ChangeGate decides whether a topology transition may be published right
// now. It combines a forward-only lifecycle state machine with a debounce
// window and a shutdown drain. All state lives in atomics; ShouldDelay never
// blocks.
type ChangeGate struct {
	state      atomic.Int32
	inProgress atomic.Bool
	lastChange atomic.Int64

	config domain.GateConfig
	logger *slog.Logger

	epoch    time.Time
	watchdog *time.Timer
}

func NewChangeGate(config domain.GateConfig, logger *slog.Logger) *ChangeGate {
	if logger == nil {
		logger = slog.Default()
	}

	g := &ChangeGate{
		config: config,
		logger: logger.With("component", "change-gate"),
		epoch:  time.Now(),
	}
	g.state.Store(int32(domain.StateStartup))
	g.lastChange.Store(noChange)

	if config.StartupTimeout > 0 {
		g.watchdog = time.AfterFunc(config.StartupTimeout, g.forceReady)
	}

	g.logger.Info("change gate activated", "state", domain.StateStartup)
	return g
}

// State returns the current lifecycle state.
func (g *ChangeGate) State() domain.SystemState {
	return domain.SystemState(g.state.Load())
}

// BindReady signals that the external readiness condition became true.
// Calling it while already READY is a no-op; calling it after SHUTDOWN
// returns an InvalidStateTransitionError because a gate never resurrects.
func (g *ChangeGate) BindReady() error {
	for {
		current := g.State()
		switch current {
		case domain.StateReady:
			return nil
		case domain.StateShutdown:
			return domain.NewInvalidStateTransitionError(current, domain.StateReady)
		}

		if g.state.CompareAndSwap(int32(domain.StateStartup), int32(domain.StateReady)) {
			g.stopWatchdog()
			g.logger.Info("state transitioned", "from", domain.StateStartup, "to", domain.StateReady)
			return nil
		}
		// Lost the race; re-read and decide against the winner's state.
	}
}

// UnbindReady signals the readiness condition went away. It is equivalent to
// initiating shutdown: readiness never comes back within one gate lifetime.
func (g *ChangeGate) UnbindReady() {
	g.InitiateShutdown()
}

// InitiateShutdown transitions to SHUTDOWN from any live state and, when a
// change is in flight, blocks until the change completes or ShutdownTimeout
// elapses. A zero timeout returns immediately. Exceeding the timeout is a
// degraded shutdown, logged as a warning, not an error.
func (g *ChangeGate) InitiateShutdown() {
	for {
		current := g.State()
		if current == domain.StateShutdown {
			return
		}
		if g.state.CompareAndSwap(int32(current), int32(domain.StateShutdown)) {
			g.stopWatchdog()
			g.logger.Info("state transitioned", "from", current, "to", domain.StateShutdown)
			break
		}
	}

	if g.config.ShutdownTimeout <= 0 {
		return
	}

	deadline := time.Now().Add(g.config.ShutdownTimeout)
	for g.inProgress.Load() {
		// A change completing exactly at the deadline counts as drained, so
		// the in-progress check always runs before the deadline check.
		if time.Now().After(deadline) {
			g.logger.Warn("shutdown timeout reached while waiting for topology change to complete",
				"timeout", g.config.ShutdownTimeout)
			return
		}
		time.Sleep(drainPollInterval)
	}
	g.logger.Info("shutdown drain complete")
}

// ShouldDelay is the single authoritative gate consulted before publishing a
// topology transition. It is true whenever the system is not ready, a change
// is in flight, or the debounce window since the last change has not elapsed.
func (g *ChangeGate) ShouldDelay() bool {
	switch g.State() {
	case domain.StateShutdown:
		return true
	case domain.StateStartup:
		// StartupTimeout == 0 treats startup as immediately satisfied; an
		// explicit BindReady is not required in that mode.
		if g.config.StartupTimeout != 0 {
			g.logger.Debug("system not ready, delaying topology change", "state", g.State())
			return true
		}
	}

	if g.inProgress.Load() {
		g.logger.Debug("topology change in progress, delaying new change")
		return true
	}

	last := g.lastChange.Load()
	if last != noChange && time.Since(g.epoch).Nanoseconds()-last < g.config.DelayDuration.Nanoseconds() {
		g.logger.Debug("within delay period from last change, delaying topology change")
		return true
	}

	return false
}

// BeginChange marks the start of an in-flight transition and stamps the
// debounce clock. It is an idempotent marker, not a lock: overlapping
// callers simply observe ShouldDelay()==true until EndChange runs.
func (g *ChangeGate) BeginChange() {
	g.inProgress.Store(true)
	g.lastChange.Store(time.Since(g.epoch).Nanoseconds())
}

// EndChange clears the in-progress marker.
func (g *ChangeGate) EndChange() {
	g.inProgress.Store(false)
}

// ChangeInProgress reports whether a transition is currently in flight.
func (g *ChangeGate) ChangeInProgress() bool {
	return g.inProgress.Load()
}

// Close forces the gate into SHUTDOWN without draining and stops the startup
// watchdog. Used at process teardown.
func (g *ChangeGate) Close() {
	g.stopWatchdog()
	for {
		current := g.State()
		if current == domain.StateShutdown {
			return
		}
		if g.state.CompareAndSwap(int32(current), int32(domain.StateShutdown)) {
			g.logger.Info("change gate deactivated", "from", current)
			return
		}
	}
}

func (g *ChangeGate) forceReady() {
	if g.state.CompareAndSwap(int32(domain.StateStartup), int32(domain.StateReady)) {
		g.logger.Warn("startup timeout reached without readiness signal, forcing ready",
			"timeout", g.config.StartupTimeout)
	}
}

func (g *ChangeGate) stopWatchdog() {
	if g.watchdog != nil {
		g.watchdog.Stop()
	}
}
