package events

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a committed change to the memory graph
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // node.created, node.updated, node.deleted, link.created, link.deleted
	Timestamp time.Time `json:"timestamp"`

	// Node event fields
	NodeID string `json:"node_id,omitempty"`

	// Link event fields
	LinkSource string `json:"link_source,omitempty"`
	LinkTarget string `json:"link_target,omitempty"`

	Meta map[string]any `json:"meta,omitempty"`
}

// Event type constants
const (
	EventNodeCreated = "node.created"
	EventNodeUpdated = "node.updated"
	EventNodeDeleted = "node.deleted"
	EventLinkCreated = "link.created"
	EventLinkDeleted = "link.deleted"
)

// Emitter receives events after the change they describe has committed.
type Emitter func(Event)

// NodeEvent builds a node.* event.
func NodeEvent(eventType, nodeID string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: at,
		NodeID:    nodeID,
	}
}

// LinkEvent builds a link.* event for the undirected link source-target.
func LinkEvent(eventType, source, target string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  at,
		LinkSource: source,
		LinkTarget: target,
	}
}
