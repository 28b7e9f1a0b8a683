package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// InstanceDescription describes a single instance participating in the
// topology, either in the local cluster or attached through a connector.
type InstanceDescription struct {
	ID         string            `json:"id"`
	ClusterID  string            `json:"cluster_id"`
	Address    string            `json:"address"`
	Leader     bool              `json:"leader"`
	Local      bool              `json:"local"`
	Properties map[string]string `json:"properties,omitempty"`
}

// LocalClusterView is the membership of the local cluster as reported by the
// external ClusterViewService. It is opaque to the orchestrator beyond the
// instance list.
type LocalClusterView struct {
	ClusterID string                `json:"cluster_id"`
	Instances []InstanceDescription `json:"instances"`
}

// TopologyView is a snapshot of local cluster membership plus reachable
// remote instances. The instance list is fixed at construction; only the
// current flag mutates, atomically, when the view is superseded or the
// local cluster view becomes undefined.
type TopologyView struct {
	localView *LocalClusterView
	instances []InstanceDescription
	current   atomic.Bool
}

// NewTopologyView builds a current view from the local cluster view and the
// remote instances attached via announcements.
func NewTopologyView(localView *LocalClusterView, remote []InstanceDescription) *TopologyView {
	view := &TopologyView{localView: localView}
	if localView != nil {
		view.instances = append(view.instances, localView.Instances...)
	}
	view.instances = append(view.instances, remote...)
	view.current.Store(true)
	return view
}

// EmptyTopologyView returns a non-current view with no instances. It seeds
// the orchestrator so the fallback view is never nil.
func EmptyTopologyView() *TopologyView {
	return &TopologyView{}
}

func (v *TopologyView) IsCurrent() bool {
	return v.current.Load()
}

// MarkNotCurrent flags the view as stale. There is no way back: a fresh
// snapshot replaces the view instead.
func (v *TopologyView) MarkNotCurrent() {
	v.current.Store(false)
}

func (v *TopologyView) LocalClusterView() *LocalClusterView {
	return v.localView
}

// Instances returns a copy of the instance list so callers cannot mutate the
// published snapshot.
func (v *TopologyView) Instances() []InstanceDescription {
	out := make([]InstanceDescription, len(v.instances))
	copy(out, v.instances)
	return out
}

// LocalInstance returns the instance marked local, if any.
func (v *TopologyView) LocalInstance() (InstanceDescription, bool) {
	for _, instance := range v.instances {
		if instance.Local {
			return instance, true
		}
	}
	return InstanceDescription{}, false
}

func (v *TopologyView) String() string {
	ids := make([]string, 0, len(v.instances))
	for _, instance := range v.instances {
		ids = append(ids, instance.ID)
	}
	sort.Strings(ids)
	return fmt.Sprintf("TopologyView[current=%t, instances=%s]", v.IsCurrent(), strings.Join(ids, ","))
}
