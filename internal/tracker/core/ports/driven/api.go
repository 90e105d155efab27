package driven

import (
	"context"

	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
)

// IBackend is the HTTP surface of the tracking backend.
type IBackend interface {
	Login(ctx context.Context, req dto.LoginRequest) (model.Session, error)
	Register(ctx context.Context, req dto.RegisterRequest) error

	Freights(ctx context.Context) ([]model.Freight, error)

	Companies(ctx context.Context) ([]model.Company, error)
	SearchCompanies(ctx context.Context) ([]model.Company, error)
	CompanyByID(ctx context.Context, id string) (model.Company, error)

	Geofences(ctx context.Context, companyID string) ([]model.GeofenceRegion, error)

	IngestLocation(ctx context.Context, payload model.LocationUpdatePayload) error
	BulkLocations(ctx context.Context, items []model.LocationUpdatePayload) error
	PostGeofenceEvent(ctx context.Context, event model.GeofenceEvent) error
}
