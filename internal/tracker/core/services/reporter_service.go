package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/model"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// ReporterState is the trust decision of the live-location reporter.
type ReporterState string

const (
	StateIdle           ReporterState = "idle"
	StateAwaitingServer ReporterState = "awaiting_server"
	StateServerTrusted  ReporterState = "server_trusted"
	StateLocalFallback  ReporterState = "local_fallback"
)

const DefaultGracePeriod = 3000 * time.Millisecond

type ReporterOptions struct {
	// Grace is how long to wait for a server-confirmed position before
	// falling back to local GPS.
	Grace time.Duration
	// Watch throttling for the fallback GPS subscription.
	WatchInterval time.Duration
	WatchDistance float64
}

// ReporterService decides whether displayed positions come from the backend's
// authoritative push feed or from local GPS, and reconciles the two without
// flicker. Once the feed has confirmed a position for the session's user the
// decision is locked for the lifetime of the reporter: later feed messages
// omitting the user are treated as transient gaps, not disconnections.
type ReporterService struct {
	realtime driven.IRealtime
	gps      driven.ILocationSource
	opts     ReporterOptions
	mylog    mylogger.Logger

	// Callbacks are set before Start. OnRecenter fires once per start, on the
	// first confirmed position of either source.
	OnPosition func(model.LocationPoint)
	OnVisible  func([]websocketdto.VisibleLocation)
	OnRecenter func(model.LocationPoint)

	mu          sync.Mutex
	state       ReporterState
	session     model.Session
	graceTimer  *time.Timer
	stopWatch   func()
	offVisible  func()
	recentered  bool
	watchCtx    context.Context
	watchCancel context.CancelFunc
}

func NewReporterService(
	realtime driven.IRealtime,
	gps driven.ILocationSource,
	opts ReporterOptions,
	mylog mylogger.Logger,
) *ReporterService {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGracePeriod
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = 3 * time.Second
	}
	if opts.WatchDistance <= 0 {
		opts.WatchDistance = 5
	}
	return &ReporterService{
		realtime: realtime,
		gps:      gps,
		opts:     opts,
		mylog:    mylog,
		state:    StateIdle,
	}
}

func (r *ReporterService) State() ReporterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start attaches to the realtime feed and arms the grace timer. When no
// connection can be obtained it transitions straight to local fallback
// without waiting for the grace period.
func (r *ReporterService) Start(ctx context.Context, session model.Session) error {
	log := r.mylog.Action("reporter_start")

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.session = session
	r.recentered = false
	r.watchCtx, r.watchCancel = context.WithCancel(context.WithoutCancel(ctx))
	r.state = StateAwaitingServer
	r.mu.Unlock()

	if err := r.realtime.Connect(ctx, session.Tokens.AccessToken); err != nil {
		log.Warn("no realtime connection, falling back to local GPS", "reason", err.Error())
		r.startFallback()
		return nil
	}

	r.mu.Lock()
	r.offVisible = r.realtime.On(websocketdto.LocationsVisible, r.handleVisible)
	r.graceTimer = time.AfterFunc(r.opts.Grace, r.onGraceExpired)
	r.mu.Unlock()

	if err := r.realtime.Emit(websocketdto.LocationsSubscribe, nil); err != nil {
		log.Warn("subscribe emit failed", "reason", err.Error())
	}

	log.Info("awaiting server positions", "grace", r.opts.Grace.String())
	return nil
}

// Stop tears the reporter down: grace timer cleared, fallback polling
// cancelled, feed listener detached.
func (r *ReporterService) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
	if r.offVisible != nil {
		r.offVisible()
		r.offVisible = nil
	}
	if r.watchCancel != nil {
		r.watchCancel()
	}
	r.state = StateIdle
}

func (r *ReporterService) handleVisible(event websocketdto.Event) {
	log := r.mylog.Action("locations_visible")

	var list []websocketdto.VisibleLocation
	if err := json.Unmarshal(event.Data, &list); err != nil {
		log.Warn("discarding malformed visible list", "reason", err.Error())
		return
	}

	if r.OnVisible != nil {
		r.OnVisible(list)
	}

	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	userID := r.session.User.ID()

	var mine *websocketdto.VisibleLocation
	for i := range list {
		if list[i].UserID == userID {
			mine = &list[i]
			break
		}
	}

	if mine == nil {
		// Feed is alive but does not include us yet. Transient gap when
		// already trusted; otherwise start polling if nothing runs.
		startPolling := r.state == StateAwaitingServer && r.stopWatch == nil
		r.mu.Unlock()
		if startPolling {
			r.startFallback()
		}
		return
	}

	firstTrust := r.state != StateServerTrusted
	r.state = StateServerTrusted
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
	recenter := firstTrust && !r.recentered
	if recenter {
		r.recentered = true
	}
	r.mu.Unlock()

	if firstTrust {
		log.Info("server position confirmed, local polling stopped", "user_id", userID)
	}
	if recenter && r.OnRecenter != nil {
		r.OnRecenter(mine.Point)
	}
	if r.OnPosition != nil {
		r.OnPosition(mine.Point)
	}
}

func (r *ReporterService) onGraceExpired() {
	r.mu.Lock()
	expired := r.state == StateAwaitingServer
	r.graceTimer = nil
	r.mu.Unlock()

	if expired {
		r.mylog.Action("grace_expired").Info("no server position within grace period")
		r.startFallback()
	}
}

// startFallback switches to local GPS polling. While polling is active the
// device's own position is emitted to the backend; the server feed taking
// over stops both.
func (r *ReporterService) startFallback() {
	log := r.mylog.Action("fallback")

	r.mu.Lock()
	if r.state == StateServerTrusted || r.state == StateIdle || r.stopWatch != nil {
		r.mu.Unlock()
		return
	}
	ctx := r.watchCtx
	session := r.session
	r.state = StateLocalFallback
	r.mu.Unlock()

	first, err := r.gps.Current(ctx)
	if err != nil {
		// Location access denied: fallback silently never starts.
		log.Warn("local GPS unavailable", "reason", err.Error())
		return
	}
	r.deliverLocal(first)

	stop, err := r.gps.Watch(ctx, driven.WatchOptions{
		IntervalMillis: r.opts.WatchInterval.Milliseconds(),
		DistanceMeters: r.opts.WatchDistance,
	}, r.deliverLocal)
	if err != nil {
		log.Warn("local GPS watch failed", "reason", err.Error())
		return
	}

	r.mu.Lock()
	if r.state != StateLocalFallback {
		// Trusted or stopped while we were acquiring the first fix.
		r.mu.Unlock()
		stop()
		return
	}
	r.stopWatch = stop
	r.mu.Unlock()

	log.Info("local GPS polling active", "user_id", session.User.ID())
}

func (r *ReporterService) deliverLocal(p model.LocationPoint) {
	r.mu.Lock()
	if r.state != StateLocalFallback {
		r.mu.Unlock()
		return
	}
	session := r.session
	recenter := !r.recentered
	if recenter {
		r.recentered = true
	}
	r.mu.Unlock()

	if recenter && r.OnRecenter != nil {
		r.OnRecenter(p)
	}
	if r.OnPosition != nil {
		r.OnPosition(p)
	}

	if r.realtime.Connected() {
		payload := model.LocationUpdatePayload{
			UserID:    session.User.ID(),
			CompanyID: session.User.Company(),
			Point:     p,
		}
		if err := r.realtime.Emit(websocketdto.LocationUpdate, payload); err != nil {
			r.mylog.Action("fallback_emit").Warn("location emit failed", "reason", err.Error())
		}
	}
}
