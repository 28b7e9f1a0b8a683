package ports

import (
	"github.com/eleven-am/meshview/internal/domain"
)

// DiscoveryService produces the authoritative topology view on demand. It
// never fails: when the view cannot be refreshed the previous snapshot is
// returned flagged as not current.
type DiscoveryService interface {
	GetTopology() *domain.TopologyView
}

// TopologyEventListener receives topology lifecycle events. A listener that
// panics or misbehaves must not prevent delivery to the others.
type TopologyEventListener interface {
	HandleTopologyEvent(event domain.TopologyEvent)
}

// IsolationHandler is invoked when the local instance discovers it is
// isolated from the topology.
type IsolationHandler func()
