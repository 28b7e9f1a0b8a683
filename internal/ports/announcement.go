package ports

import (
	"time"

	"github.com/eleven-am/meshview/internal/domain"
)

// AnnouncementRegistry tracks the announcements received from remote
// instances and flattens them into instance descriptions for the topology
// view.
type AnnouncementRegistry interface {
	Register(announcement *domain.Announcement) error
	Unregister(originID string)
	ListInstances(localView *domain.LocalClusterView) []domain.InstanceDescription
	ListAnnouncements() []domain.Announcement
	Prune(now time.Time) int
}
