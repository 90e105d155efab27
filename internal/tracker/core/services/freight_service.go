package services

import (
	"context"
	"fmt"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// FreightService serves the freight listing.
type FreightService struct {
	backend driven.IBackend
	mylog   mylogger.Logger
}

func NewFreightService(backend driven.IBackend, mylog mylogger.Logger) *FreightService {
	return &FreightService{backend: backend, mylog: mylog}
}

func (f *FreightService) List(ctx context.Context) ([]model.Freight, error) {
	freights, err := f.backend.Freights(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading freights: %w", err)
	}
	f.mylog.Action("list_freights").Debug("freights loaded", "count", len(freights))
	return freights, nil
}

// Active filters the listing down to freights currently available or moving.
func (f *FreightService) Active(ctx context.Context) ([]model.Freight, error) {
	freights, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	out := freights[:0]
	for _, fr := range freights {
		if fr.IsActive {
			out = append(out, fr)
		}
	}
	return out, nil
}
