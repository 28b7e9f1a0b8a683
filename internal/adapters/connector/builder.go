package connector

import (
	"time"

	"github.com/eleven-am/meshview/internal/domain"
	"github.com/eleven-am/meshview/internal/ports"
	"github.com/google/uuid"
)

// Builder assembles the local announcement sent to peers: the local cluster
// membership stamped with a fresh ID and an expiry derived from the
// announcement timeout.
type Builder struct {
	instanceID string
	clusterID  string
	address    string
	timeout    time.Duration

	clusterView ports.ClusterViewService
}

func NewBuilder(config *domain.Config, clusterView ports.ClusterViewService) *Builder {
	return &Builder{
		instanceID:  config.InstanceID,
		clusterID:   config.ClusterID,
		address:     config.BindAddr,
		timeout:     config.Connector.AnnouncementTimeout,
		clusterView: clusterView,
	}
}

// Build produces the announcement for the given connector path. The Local
// flag is cleared on every instance: locality is meaningful only on the
// sending side.
func (b *Builder) Build(path string) (*domain.Announcement, error) {
	localView, err := b.clusterView.GetLocalClusterView()
	if err != nil {
		return nil, err
	}

	instances := make([]domain.InstanceDescription, len(localView.Instances))
	copy(instances, localView.Instances)
	for i := range instances {
		instances[i].Local = false
	}

	now := time.Now()
	return &domain.Announcement{
		ID:        uuid.New().String(),
		OriginID:  b.instanceID,
		ClusterID: b.clusterID,
		Path:      path,
		Instances: instances,
		Created:   now,
		Expires:   now.Add(b.timeout),
	}, nil
}
