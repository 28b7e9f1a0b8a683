package domain

import (
	"time"

	"github.com/eleven-am/meshview/internal/xjson"
)

// Announcement is the message by which one instance tells a peer about
// itself. Its trust envelope is computed fresh per send by the connector
// layer; the announcement itself carries no signature material.
type Announcement struct {
	ID         string                `json:"id"`
	OriginID   string                `json:"origin_id"`
	ClusterID  string                `json:"cluster_id"`
	Path       string                `json:"path"`
	Instances  []InstanceDescription `json:"instances"`
	Created    time.Time             `json:"created"`
	Expires    time.Time             `json:"expires"`
	Properties map[string]string     `json:"properties,omitempty"`
}

// Expired reports whether the announcement is past its expiry at now.
// Expiring exactly at now counts as still live.
func (a *Announcement) Expired(now time.Time) bool {
	return now.After(a.Expires)
}

func (a *Announcement) Encode() ([]byte, error) {
	return xjson.Marshal(a)
}

func DecodeAnnouncement(data []byte) (*Announcement, error) {
	var announcement Announcement
	if err := xjson.Unmarshal(data, &announcement); err != nil {
		return nil, err
	}
	return &announcement, nil
}
