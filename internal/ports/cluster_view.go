package ports

import (
	"github.com/eleven-am/meshview/internal/domain"
)

// ClusterViewService reports the membership of the local cluster. It is an
// external collaborator (typically backed by a repository); failures are
// returned as *domain.UndefinedClusterViewError.
type ClusterViewService interface {
	GetLocalClusterView() (*domain.LocalClusterView, error)
}
