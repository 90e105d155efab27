package model

// LocationPoint is a single GPS sample. Timestamp is epoch milliseconds, the
// unit the backend ingests.
type LocationPoint struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  float64  `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// LocationUpdatePayload is the wire message for one user's position. It is
// also the shape stored in the offline queue when a send fails.
type LocationUpdatePayload struct {
	UserID    string        `json:"userId"`
	CompanyID string        `json:"companyId"`
	Point     LocationPoint `json:"point"`
}

// GeofenceRegion is a monitored circular area owned by a company.
type GeofenceRegion struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Radius    float64 `json:"radius"` // meters
	CompanyID string  `json:"companyId"`
	Label     string  `json:"label,omitempty"`
}

type GeofenceTransition string

const (
	TransitionEnter GeofenceTransition = "enter"
	TransitionExit  GeofenceTransition = "exit"
)

// GeofenceEvent records one boundary crossing. Sent once, best effort.
type GeofenceEvent struct {
	UserID     string             `json:"userId"`
	CompanyID  string             `json:"companyId"`
	RegionID   string             `json:"regionId"`
	Transition GeofenceTransition `json:"transition"`
	Timestamp  int64              `json:"timestamp"`
}

// ShareRule controls who outside the owner's company may see their position.
type ShareRule struct {
	Enabled                   bool     `json:"enabled"`
	AllowedRoles              []Role   `json:"allowedRoles,omitempty"`
	AllowedCustomerCompanyIDs []string `json:"allowedCustomerCompanyIds,omitempty"`
}
