package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/model"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// eventFeedLimit bounds the in-memory feed of platform-wide geofence events.
const eventFeedLimit = 100

// GeofenceService is both the region monitor and the transition task. The
// monitor tracks which synced regions the device is inside and turns boundary
// crossings into enter/exit events. The task reports each event to the
// backend best effort and always raises a local notification, regardless of
// whether the send worked. It also consumes the backend's geofence:event feed
// into a bounded buffer of recent events.
type GeofenceService struct {
	store    driven.ICredentialStore
	backend  driven.IBackend
	notifier driven.INotifier
	mylog    mylogger.Logger

	mu      sync.Mutex
	regions []model.GeofenceRegion
	inside  map[string]bool
	feed    []model.GeofenceEvent
}

func NewGeofenceService(
	store driven.ICredentialStore,
	backend driven.IBackend,
	notifier driven.INotifier,
	mylog mylogger.Logger,
) *GeofenceService {
	return &GeofenceService{
		store:    store,
		backend:  backend,
		notifier: notifier,
		mylog:    mylog,
		inside:   make(map[string]bool),
	}
}

// Regions returns the currently monitored regions.
func (g *GeofenceService) Regions() []model.GeofenceRegion {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.GeofenceRegion, len(g.regions))
	copy(out, g.regions)
	return out
}

// Refresh re-syncs the monitored regions from the backend. Containment state
// of regions that survived the sync is kept so a refresh does not produce
// spurious transitions.
func (g *GeofenceService) Refresh(ctx context.Context, companyID string) error {
	log := g.mylog.Action("geofence_refresh")

	regions, err := g.backend.Geofences(ctx, companyID)
	if err != nil {
		return fmt.Errorf("syncing geofences: %w", err)
	}

	g.mu.Lock()
	known := make(map[string]bool, len(regions))
	for _, r := range regions {
		known[r.ID] = true
	}
	for id := range g.inside {
		if !known[id] {
			delete(g.inside, id)
		}
	}
	g.regions = regions
	g.mu.Unlock()

	log.Info("geofences synced", "company_id", companyID, "regions", len(regions))
	return nil
}

// BindRealtime re-syncs whenever the backend announces region changes and
// feeds inbound geofence events into the event buffer. Returns a detach
// function.
func (g *GeofenceService) BindRealtime(ctx context.Context, realtime driven.IRealtime, companyID string) func() {
	resync := func(websocketdto.Event) {
		if err := g.Refresh(ctx, companyID); err != nil {
			g.mylog.Action("geofence_resync").Warn("refresh failed", "reason", err.Error())
		}
	}
	offUpdated := realtime.On(websocketdto.GeofencesUpdated, resync)
	offDeleted := realtime.On(websocketdto.GeofencesDeleted, resync)
	offEvents := realtime.On(websocketdto.GeofenceEvent, g.handleFeedEvent)
	return func() {
		offUpdated()
		offDeleted()
		offEvents()
	}
}

func (g *GeofenceService) handleFeedEvent(event websocketdto.Event) {
	log := g.mylog.Action("geofence_feed")

	var ev model.GeofenceEvent
	if err := json.Unmarshal(event.Data, &ev); err != nil {
		log.Warn("discarding malformed geofence event", "reason", err.Error())
		return
	}

	g.mu.Lock()
	g.feed = append(g.feed, ev)
	if len(g.feed) > eventFeedLimit {
		g.feed = g.feed[len(g.feed)-eventFeedLimit:]
	}
	g.mu.Unlock()

	log.Info("geofence event received",
		"region_id", ev.RegionID, "user_id", ev.UserID, "transition", string(ev.Transition))
}

// RecentEvents returns the buffered geofence event feed, oldest first.
func (g *GeofenceService) RecentEvents() []model.GeofenceEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.GeofenceEvent, len(g.feed))
	copy(out, g.feed)
	return out
}

// Check matches one sample against the monitored regions and runs the
// transition task for every boundary crossing.
func (g *GeofenceService) Check(ctx context.Context, p model.LocationPoint) {
	for _, event := range g.transitions(p) {
		g.HandleTransition(ctx, event.region, event.transition)
	}
}

type regionTransition struct {
	region     model.GeofenceRegion
	transition model.GeofenceTransition
}

func (g *GeofenceService) transitions(p model.LocationPoint) []regionTransition {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []regionTransition
	for _, r := range g.regions {
		contained := r.Contains(p.Lat, p.Lng)
		was := g.inside[r.ID]
		if contained == was {
			continue
		}
		g.inside[r.ID] = contained
		tr := model.TransitionExit
		if contained {
			tr = model.TransitionEnter
		}
		out = append(out, regionTransition{region: r, transition: tr})
	}
	return out
}

// HandleTransition is the OS-task analogue: credentials come from durable
// storage (no-op without a session), the backend send is best effort and
// never queued, and the local notification is raised unconditionally.
func (g *GeofenceService) HandleTransition(ctx context.Context, region model.GeofenceRegion, transition model.GeofenceTransition) {
	log := g.mylog.Action("geofence_transition")

	user, ok := g.loadUser(ctx)
	if !ok {
		return
	}

	event := model.GeofenceEvent{
		UserID:     user.ID(),
		CompanyID:  user.Company(),
		RegionID:   region.ID,
		Transition: transition,
		Timestamp:  time.Now().UnixMilli(),
	}

	if err := g.backend.PostGeofenceEvent(ctx, event); err != nil {
		log.Warn("geofence event dropped", "region_id", region.ID, "reason", err.Error())
	}

	title := "Geofence entered"
	if transition == model.TransitionExit {
		title = "Geofence left"
	}
	zone := region.Label
	if zone == "" {
		zone = region.ID
	}
	if err := g.notifier.Notify(ctx, title, "Zone: "+zone); err != nil {
		log.Warn("notification failed", "region_id", region.ID, "reason", err.Error())
	}
}

func (g *GeofenceService) loadUser(ctx context.Context) (model.User, bool) {
	log := g.mylog.Action("load_credentials")

	if _, err := g.store.Get(ctx, driven.KeyAccessToken); err != nil {
		if !errors.Is(err, myerrors.ErrKeyNotFound) {
			log.Warn("reading stored token", "reason", err.Error())
		}
		return model.User{}, false
	}

	userJSON, err := g.store.Get(ctx, driven.KeyUser)
	if err != nil {
		if !errors.Is(err, myerrors.ErrKeyNotFound) {
			log.Warn("reading stored user", "reason", err.Error())
		}
		return model.User{}, false
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		log.Warn("stored user record is not valid JSON", "reason", err.Error())
		return model.User{}, false
	}
	return user, true
}
