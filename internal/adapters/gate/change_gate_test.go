package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/meshview/internal/domain"
)

func newTestGate(t *testing.T, config domain.GateConfig) *ChangeGate {
	t.Helper()
	g := NewChangeGate(config, nil)
	t.Cleanup(g.Close)
	return g
}

func TestStateMachineForwardOnly(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{})

	assert.Equal(t, domain.StateStartup, g.State())

	require.NoError(t, g.BindReady())
	assert.Equal(t, domain.StateReady, g.State())

	// Idempotent while already ready.
	require.NoError(t, g.BindReady())
	assert.Equal(t, domain.StateReady, g.State())

	g.InitiateShutdown()
	assert.Equal(t, domain.StateShutdown, g.State())

	err := g.BindReady()
	require.Error(t, err)
	assert.True(t, domain.IsInvalidStateTransition(err))
	assert.Equal(t, domain.StateShutdown, g.State())
}

func TestStartupStraightToShutdown(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{})

	g.InitiateShutdown()
	assert.Equal(t, domain.StateShutdown, g.State())

	err := g.BindReady()
	assert.True(t, domain.IsInvalidStateTransition(err))
}

func TestShouldDelayWhileNotReady(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{StartupTimeout: time.Minute})

	assert.True(t, g.ShouldDelay(), "startup state must delay")

	require.NoError(t, g.BindReady())
	assert.False(t, g.ShouldDelay(), "ready with no change and no debounce must not delay")

	g.InitiateShutdown()
	assert.True(t, g.ShouldDelay(), "shutdown state must delay")
}

func TestShouldDelayWithZeroStartupTimeout(t *testing.T) {
	// StartupTimeout == 0 treats startup as immediately satisfied; no
	// explicit BindReady is required.
	g := newTestGate(t, domain.GateConfig{})

	assert.Equal(t, domain.StateStartup, g.State())
	assert.False(t, g.ShouldDelay())
}

func TestShouldDelayDuringChange(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{})
	require.NoError(t, g.BindReady())

	g.BeginChange()
	assert.True(t, g.ShouldDelay())

	g.EndChange()
	assert.False(t, g.ShouldDelay(), "no debounce configured, delay clears with the change")
}

func TestDebounceWindow(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{DelayDuration: 150 * time.Millisecond})
	require.NoError(t, g.BindReady())

	assert.False(t, g.ShouldDelay(), "no change yet, a fresh gate is not inside a debounce window")

	g.BeginChange()
	g.EndChange()

	assert.True(t, g.ShouldDelay(), "inside debounce window")

	deadline := time.Now().Add(time.Second)
	for g.ShouldDelay() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, g.ShouldDelay(), "debounce window must expire")
}

func TestShutdownWithZeroTimeoutReturnsImmediately(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{})
	require.NoError(t, g.BindReady())

	g.BeginChange()

	start := time.Now()
	g.InitiateShutdown()
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, domain.StateShutdown, g.State())
}

func TestShutdownDrainsInFlightChange(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{ShutdownTimeout: 2 * time.Second})
	require.NoError(t, g.BindReady())

	g.BeginChange()

	go func() {
		time.Sleep(250 * time.Millisecond)
		g.EndChange()
	}()

	start := time.Now()
	g.InitiateShutdown()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond, "shutdown must wait for the change")
	assert.Less(t, elapsed, time.Second, "shutdown must return soon after the change ends")
	assert.False(t, g.ChangeInProgress())
}

func TestShutdownTimesOutOnStuckChange(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{ShutdownTimeout: 300 * time.Millisecond})
	require.NoError(t, g.BindReady())

	g.BeginChange()

	start := time.Now()
	g.InitiateShutdown()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	// Degraded shutdown: the change is still marked in flight but the state
	// is terminal.
	assert.True(t, g.ChangeInProgress())
	assert.Equal(t, domain.StateShutdown, g.State())
}

func TestStartupWatchdogForcesReady(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{StartupTimeout: 100 * time.Millisecond})

	assert.Equal(t, domain.StateStartup, g.State())
	assert.True(t, g.ShouldDelay())

	deadline := time.Now().Add(time.Second)
	for g.State() != domain.StateReady && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, domain.StateReady, g.State())
	assert.False(t, g.ShouldDelay())
}

func TestWatchdogDoesNotResurrectAfterShutdown(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{StartupTimeout: 100 * time.Millisecond})

	g.InitiateShutdown()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, domain.StateShutdown, g.State())
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	for i := 0; i < 50; i++ {
		g := NewChangeGate(domain.GateConfig{}, nil)

		var wg sync.WaitGroup
		var bindErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			bindErr = g.BindReady()
		}()
		go func() {
			defer wg.Done()
			g.InitiateShutdown()
		}()
		wg.Wait()

		// Shutdown always sticks; BindReady either won the race first or
		// observed the terminal state and failed.
		assert.Equal(t, domain.StateShutdown, g.State())
		if bindErr != nil {
			assert.True(t, domain.IsInvalidStateTransition(bindErr))
		}
		g.Close()
	}
}

func TestOverlappingChangeMarkersAreIdempotent(t *testing.T) {
	g := newTestGate(t, domain.GateConfig{})
	require.NoError(t, g.BindReady())

	g.BeginChange()
	g.BeginChange()
	assert.True(t, g.ChangeInProgress())

	g.EndChange()
	assert.False(t, g.ChangeInProgress())
	g.EndChange()
	assert.False(t, g.ChangeInProgress())
}
