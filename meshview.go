// Package meshview provides a peer-to-peer cluster topology discovery
// substrate for Go applications.
//
// Cooperating instances periodically exchange signed announcement messages
// over HTTP to learn each other's presence, merge the result into a single
// consistent topology view, and gate when that view may change so dependent
// subsystems never observe a flapping or half-initialized cluster. It
// provides:
//   - A change gate: a lifecycle state machine with debounce and shutdown
//     drain that decides whether a topology transition may be published
//   - A connector trust layer: shared-secret-derived, time-windowed HMAC
//     signatures and optional symmetric encryption for announcement bodies
//   - A topology orchestrator with stale-view fallback and isolation
//     handling
//   - An HTTP announcement connector (client and handler) plus an in-memory
//     announcement registry
//
// Basic usage:
//
//	svc, _ := meshview.New(meshview.DefaultConfig(), myClusterViewService)
//	http.Handle("/connector/announce", svc.Handler())
//	svc.Start(context.Background(), []string{"http://peer:8080/connector/announce"})
//	svc.BindReady()
//	view := svc.GetTopology()
package meshview

import (
	"github.com/eleven-am/meshview/internal/domain"
	"github.com/eleven-am/meshview/internal/ports"
)

// TopologyView is an immutable-once-published snapshot of local cluster
// membership plus reachable remote instances. Only its current flag mutates
// after publication.
type TopologyView = domain.TopologyView

// InstanceDescription describes one instance participating in the topology.
type InstanceDescription = domain.InstanceDescription

// LocalClusterView is the local cluster membership supplied by the external
// cluster view service.
type LocalClusterView = domain.LocalClusterView

// Announcement is the message by which one instance tells a peer about
// itself and its cluster.
type Announcement = domain.Announcement

// TopologyEvent is delivered to listeners on topology lifecycle changes.
type TopologyEvent = domain.TopologyEvent

// TopologyEventType enumerates init, changing and changed events.
type TopologyEventType = domain.TopologyEventType

const (
	EventInit     = domain.EventInit
	EventChanging = domain.EventChanging
	EventChanged  = domain.EventChanged
)

// SystemState is the gate's lifecycle state: startup, ready or shutdown.
type SystemState = domain.SystemState

const (
	StateStartup  = domain.StateStartup
	StateReady    = domain.StateReady
	StateShutdown = domain.StateShutdown
)

// ClusterViewService reports local cluster membership. Implementations fail
// with *UndefinedClusterViewError when the view cannot be computed.
type ClusterViewService = ports.ClusterViewService

// AnnouncementRegistry tracks announcements received from remote instances.
type AnnouncementRegistry = ports.AnnouncementRegistry

// TopologyEventListener receives topology lifecycle events.
type TopologyEventListener = ports.TopologyEventListener

// IsolationHandler is invoked when this instance is isolated from the
// topology.
type IsolationHandler = ports.IsolationHandler

// UndefinedClusterViewError is the failure mode of a ClusterViewService.
type UndefinedClusterViewError = domain.UndefinedClusterViewError

// UndefinedClusterViewReason classifies why the local view is undefined.
type UndefinedClusterViewReason = domain.UndefinedClusterViewReason

const (
	ReasonRepositoryException  = domain.ReasonRepositoryException
	ReasonIsolatedFromTopology = domain.ReasonIsolatedFromTopology
	ReasonNoEstablishedView    = domain.ReasonNoEstablishedView
)

// InvalidStateTransitionError signals an illegal gate transition; it
// indicates a lifecycle bug in the caller.
type InvalidStateTransitionError = domain.InvalidStateTransitionError

// IsInvalidStateTransition reports whether err is an
// InvalidStateTransitionError.
func IsInvalidStateTransition(err error) bool {
	return domain.IsInvalidStateTransition(err)
}

// IsUndefinedClusterView reports whether err is an UndefinedClusterViewError.
func IsUndefinedClusterView(err error) bool {
	return domain.IsUndefinedClusterView(err)
}

// NewUndefinedClusterViewError builds the error a ClusterViewService returns
// when the local view cannot be computed.
func NewUndefinedClusterViewError(reason UndefinedClusterViewReason, message string) *UndefinedClusterViewError {
	return domain.NewUndefinedClusterViewError(reason, message)
}
