package discovery

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eleven-am/meshview/internal/adapters/gate"
	"github.com/eleven-am/meshview/internal/domain"
	"github.com/eleven-am/meshview/internal/ports"
)

// Orchestrator computes the authoritative topology view from the local
// cluster provider and the announcement registry, consulting the change gate
// before publishing a new snapshot.
//
// GetTopology never fails: when the local cluster view is undefined the
// previously published view is returned flagged as not current. Availability
// over freshness.
type Orchestrator struct {
	clusterView   ports.ClusterViewService
	announcements ports.AnnouncementRegistry
	gate          *gate.ChangeGate
	onIsolated    ports.IsolationHandler
	logger        *slog.Logger

	// oldView is the last published snapshot. Replacement is a single
	// atomic pointer swap; readers never observe a partially built view.
	// Never nil after construction.
	oldView atomic.Pointer[domain.TopologyView]

	listenersMu sync.RWMutex
	listeners   []ports.TopologyEventListener
}

func NewOrchestrator(
	clusterView ports.ClusterViewService,
	announcements ports.AnnouncementRegistry,
	changeGate *gate.ChangeGate,
	onIsolated ports.IsolationHandler,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		clusterView:   clusterView,
		announcements: announcements,
		gate:          changeGate,
		onIsolated:    onIsolated,
		logger:        logger.With("component", "topology-orchestrator"),
	}
	o.oldView.Store(domain.EmptyTopologyView())
	return o
}

// GetTopology returns the current topology view. The candidate recomputed on
// this call is published only when the change gate permits it; otherwise the
// previous view is returned unchanged and the candidate is discarded, not
// queued.
func (o *Orchestrator) GetTopology() *domain.TopologyView {
	localView, err := o.clusterView.GetLocalClusterView()
	if err != nil {
		// Cut off from the local cluster means cut off from the entire
		// topology: keep the announcements untouched and hand back the
		// previous view marked stale.
		o.logger.Info("local cluster view undefined, returning previous view", "error", err)
		previous := o.oldView.Load()
		previous.MarkNotCurrent()
		if domain.IsIsolated(err) && o.onIsolated != nil {
			o.onIsolated()
		}
		return previous
	}

	attached := o.announcements.ListInstances(localView)
	candidate := domain.NewTopologyView(localView, attached)

	if o.gate.ShouldDelay() {
		o.logger.Debug("topology changes delayed, returning previous view")
		return o.oldView.Load()
	}

	o.oldView.Store(candidate)
	return candidate
}

// OldView returns the last published snapshot.
func (o *Orchestrator) OldView() *domain.TopologyView {
	return o.oldView.Load()
}

// HandleTopologyEvent maps topology lifecycle events onto the change gate
// and fans them out to listeners. A changing event arriving while the gate
// delays is dropped; a changed event always completes the in-flight change,
// otherwise the in-progress marker could never clear.
func (o *Orchestrator) HandleTopologyEvent(event domain.TopologyEvent) {
	switch event.Type {
	case domain.EventChanging:
		if o.gate.ShouldDelay() {
			o.logger.Debug("delaying topology event", "type", event.Type)
			return
		}
		o.gate.BeginChange()
	case domain.EventChanged:
		o.gate.EndChange()
		if event.NewView != nil {
			o.oldView.Store(event.NewView)
		}
	}

	o.notifyListeners(event)
}

// AddListener registers a listener and immediately delivers an init event
// carrying the current view.
func (o *Orchestrator) AddListener(listener ports.TopologyEventListener) {
	o.listenersMu.Lock()
	o.listeners = append(o.listeners, listener)
	o.listenersMu.Unlock()

	o.deliver(listener, domain.NewInitEvent(o.oldView.Load()))
}

func (o *Orchestrator) RemoveListener(listener ports.TopologyEventListener) {
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()

	for i, registered := range o.listeners {
		if registered == listener {
			o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
			return
		}
	}
}

func (o *Orchestrator) notifyListeners(event domain.TopologyEvent) {
	o.listenersMu.RLock()
	listeners := make([]ports.TopologyEventListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.listenersMu.RUnlock()

	for _, listener := range listeners {
		o.deliver(listener, event)
	}
}

// deliver isolates listener failures: one panicking listener must not
// prevent the others from being notified, nor touch gate state.
func (o *Orchestrator) deliver(listener ports.TopologyEventListener, event domain.TopologyEvent) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("topology event listener panicked", "type", event.Type, "panic", r)
		}
	}()
	listener.HandleTopologyEvent(event)
}
