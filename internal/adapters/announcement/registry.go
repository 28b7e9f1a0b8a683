package announcement

import (
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/meshview/internal/domain"
)

// Registry is the in-memory announcement store: one live announcement per
// remote origin instance, expired entries dropped on Prune. Safe for
// concurrent use.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]domain.Announcement
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:  logger.With("component", "announcement-registry"),
		entries: make(map[string]domain.Announcement),
	}
}

// Register stores or refreshes the announcement for its origin instance.
func (r *Registry) Register(announcement *domain.Announcement) error {
	if announcement == nil || announcement.OriginID == "" {
		return domain.ErrInvalidConfig
	}

	r.mu.Lock()
	r.entries[announcement.OriginID] = *announcement
	r.mu.Unlock()

	r.logger.Debug("registered announcement",
		"origin", announcement.OriginID,
		"instances", len(announcement.Instances),
		"expires", announcement.Expires)
	return nil
}

// Unregister drops the announcement from originID, if any.
func (r *Registry) Unregister(originID string) {
	r.mu.Lock()
	delete(r.entries, originID)
	r.mu.Unlock()
}

// ListInstances flattens all live announcements into instance descriptions,
// skipping instances already part of the local cluster view.
func (r *Registry) ListInstances(localView *domain.LocalClusterView) []domain.InstanceDescription {
	local := make(map[string]struct{})
	if localView != nil {
		for _, instance := range localView.Instances {
			local[instance.ID] = struct{}{}
		}
	}

	now := time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.InstanceDescription
	for _, entry := range r.entries {
		if entry.Expired(now) {
			continue
		}
		for _, instance := range entry.Instances {
			if _, ok := local[instance.ID]; ok {
				continue
			}
			instance.Local = false
			result = append(result, instance)
		}
	}
	return result
}

// ListAnnouncements returns a copy of all stored announcements, expired ones
// included; callers filter as needed.
func (r *Registry) ListAnnouncements() []domain.Announcement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Announcement, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry)
	}
	return result
}

// Prune removes announcements expired at now and returns how many were
// dropped.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for origin, entry := range r.entries {
		if entry.Expired(now) {
			delete(r.entries, origin)
			pruned++
		}
	}

	if pruned > 0 {
		r.logger.Debug("pruned expired announcements", "count", pruned)
	}
	return pruned
}
