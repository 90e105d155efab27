package websocketdto

import (
	"encoding/json"

	"freight-tracker/internal/tracker/core/domain/model"
)

// Event is the envelope for every message on the realtime channel.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound event types.
const (
	LocationsSubscribe = "locations:subscribe"
	LocationUpdate     = "location:update"
)

// Inbound event types.
const (
	LocationsVisible = "locations:visible"
	GeofencesUpdated = "geofences:updated"
	GeofencesDeleted = "geofences:deleted"
	GeofenceEvent    = "geofence:event"
)

// VisibleLocation is one entry of a locations:visible fan-out: a user the
// backend decided this session may see, with their current point.
type VisibleLocation struct {
	model.LocationUpdatePayload
	Name string `json:"name,omitempty"`
}

type AuthData struct {
	Token    string `json:"token"`
	ClientID string `json:"clientId,omitempty"`
}
