package services

import (
	"context"
	"fmt"
	"sync"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// DirectoryService caches the company directory. Not every role may list all
// companies, so loading walks a fallback chain: /companies/search, then
// /companies, then at least the session's own company.
type DirectoryService struct {
	backend driven.IBackend
	mylog   mylogger.Logger

	mu        sync.RWMutex
	companies map[string]model.Company
}

func NewDirectoryService(backend driven.IBackend, mylog mylogger.Logger) *DirectoryService {
	return &DirectoryService{
		backend:   backend,
		mylog:     mylog,
		companies: make(map[string]model.Company),
	}
}

func (d *DirectoryService) Load(ctx context.Context, session model.Session) error {
	log := d.mylog.Action("load_companies")

	list, err := d.backend.SearchCompanies(ctx)
	if err != nil {
		log.Debug("company search unavailable, trying full listing", "reason", err.Error())
		list, err = d.backend.Companies(ctx)
	}
	if err != nil {
		log.Debug("company listing unavailable, loading own company", "reason", err.Error())
		ownID := session.User.Company()
		if ownID == "" {
			return fmt.Errorf("loading companies: %w", err)
		}
		own, ownErr := d.backend.CompanyByID(ctx, ownID)
		if ownErr != nil {
			return fmt.Errorf("loading own company: %w", ownErr)
		}
		list = []model.Company{own}
	}

	d.mu.Lock()
	d.companies = make(map[string]model.Company, len(list))
	for _, c := range list {
		if c.ID == "" || c.Label() == "" {
			log.Warn("skipping company record without id or name")
			continue
		}
		d.companies[c.ID] = c
	}
	count := len(d.companies)
	d.mu.Unlock()

	log.Info("companies loaded", "count", count)
	return nil
}

// CompanyName resolves an id to a display name, falling back to the raw id
// for unknown companies.
func (d *DirectoryService) CompanyName(companyID string) string {
	if companyID == "" {
		return "unknown"
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.companies[companyID]; ok {
		return c.Label()
	}
	return companyID
}

func (d *DirectoryService) Companies() []model.Company {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Company, 0, len(d.companies))
	for _, c := range d.companies {
		out = append(out, c)
	}
	return out
}
