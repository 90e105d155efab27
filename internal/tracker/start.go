package tracker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"freight-tracker/internal/config"
	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/adapters/driven/api"
	"freight-tracker/internal/tracker/adapters/driven/gps"
	"freight-tracker/internal/tracker/adapters/driven/localstore"
	"freight-tracker/internal/tracker/adapters/driven/notification"
	"freight-tracker/internal/tracker/adapters/driven/realtime"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
	"freight-tracker/internal/tracker/core/services"
)

// Munich city center, the default simulator start when no receiver is wired.
const (
	defaultLat = 48.1374
	defaultLng = 11.5755
)

type app struct {
	store     *localstore.SecureStore
	queue     *localstore.QueueStore
	backend   *api.Client
	realtime  *realtime.Client
	source    *gps.Simulator
	session   *services.SessionService
	reporter  *services.ReporterService
	task      *services.LocationTaskService
	geofence  *services.GeofenceService
	directory *services.DirectoryService
	freights  *services.FreightService
}

func build(l mylogger.Logger, cfg *config.Config) (*app, error) {
	secret := cfg.Store.Secret
	if secret == "" {
		return nil, fmt.Errorf("STORE_SECRET is required to open the credential store")
	}
	store, err := localstore.OpenSecure(cfg.Store.Path, secret)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	queue := localstore.OpenQueue(cfg.Store.QueuePath)

	// The bearer token is read from durable storage per request, so the
	// client works identically for the foreground session and the background
	// tasks.
	backend := api.New(cfg.API.BaseURL, cfg.APITimeout(), func(ctx context.Context) string {
		token, err := store.Get(ctx, driven.KeyAccessToken)
		if err != nil {
			return ""
		}
		return token
	}, l)

	rt := realtime.New(cfg.Realtime.URL, l)
	source := gps.NewSimulator(defaultLat, defaultLng, 1)
	notifier := notification.New(cfg.API.WebhookURL, l)

	fgInterval, fgDistance := cfg.ForegroundWatch()

	a := &app{
		store:    store,
		queue:    queue,
		backend:  backend,
		realtime: rt,
		source:   source,
		session:  services.NewSessionService(store, backend, rt, cfg.API.MockAuth, l),
		reporter: services.NewReporterService(rt, source, services.ReporterOptions{
			Grace:         cfg.GracePeriod(),
			WatchInterval: fgInterval,
			WatchDistance: fgDistance,
		}, l),
		task:      services.NewLocationTaskService(store, queue, backend, l),
		geofence:  services.NewGeofenceService(store, backend, notifier, l),
		directory: services.NewDirectoryService(backend, l),
		freights:  services.NewFreightService(backend, l),
	}
	return a, nil
}

// Run starts the tracking agent and blocks until interrupted.
func Run(ctx context.Context, l mylogger.Logger, cfg *config.Config) error {
	log := l.Action("agent_run")

	shutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := build(l, cfg)
	if err != nil {
		return err
	}

	if err := a.session.Restore(shutdown); err != nil {
		return err
	}
	session, ok := a.session.Session()
	if !ok {
		return fmt.Errorf("%w; run the login command first", myerrors.ErrNoSession)
	}
	log.Info("agent started", "user_id", session.User.ID(), "company_id", session.User.Company())

	if err := a.geofence.Refresh(shutdown, session.User.Company()); err != nil {
		log.Warn("initial geofence sync failed", "reason", err.Error())
	}
	offGeofences := a.geofence.BindRealtime(shutdown, a.realtime, session.User.Company())
	defer offGeofences()

	if err := a.directory.Load(shutdown, session); err != nil {
		log.Warn("company directory unavailable", "reason", err.Error())
	}

	// Every displayed position runs through the geofence monitor.
	a.reporter.OnPosition = func(p model.LocationPoint) {
		a.geofence.Check(shutdown, p)
	}
	// The backend already applies share rules; the baseline check here only
	// classifies peers into own-company and externally-shared for the log.
	a.reporter.OnVisible = func(list []websocketdto.VisibleLocation) {
		own := 0
		for _, v := range list {
			subject := model.User{AltID: v.UserID, AltCompany: v.CompanyID}
			if model.CanViewLocation(session.User, subject, nil) {
				own++
			}
		}
		log.Debug("peer positions received", "total", len(list), "own_company", own, "shared", len(list)-own)
	}
	a.reporter.OnRecenter = func(p model.LocationPoint) {
		log.Info("viewport recentered", "lat", p.Lat, "lng", p.Lng)
	}
	if err := a.reporter.Start(shutdown, session); err != nil {
		return err
	}
	defer a.reporter.Stop()

	bgInterval, bgDistance := cfg.BackgroundWatch()
	go func() {
		if err := a.task.Run(shutdown, a.source, bgInterval, bgDistance); err != nil {
			log.Warn("background location task stopped", "reason", err.Error())
		}
	}()

	<-shutdown.Done()
	fmt.Println("Gracefully shutting down...")
	return nil
}

// Login authenticates and persists a session for subsequent agent runs.
func Login(ctx context.Context, l mylogger.Logger, cfg *config.Config, email, password string) error {
	a, err := build(l, cfg)
	if err != nil {
		return err
	}
	session, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	defer a.realtime.Close()
	fmt.Printf("Logged in as %s %s (%s)\n", session.User.FirstName, session.User.LastName, session.User.Email)
	return nil
}

// RegisterAccount creates a new backend account. The account is not usable
// until an administrator approves it.
func RegisterAccount(ctx context.Context, l mylogger.Logger, cfg *config.Config, req dto.RegisterRequest) error {
	a, err := build(l, cfg)
	if err != nil {
		return err
	}
	if err := a.session.Register(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Account created for %s. An administrator has to approve it before login.\n", req.Email)
	return nil
}

// Logout tears the stored session down.
func Logout(ctx context.Context, l mylogger.Logger, cfg *config.Config) error {
	a, err := build(l, cfg)
	if err != nil {
		return err
	}
	a.session.Logout(ctx)
	return nil
}

// ListFreights prints the freight board with resolved company names. With
// activeOnly set, inactive freights are filtered out.
func ListFreights(ctx context.Context, l mylogger.Logger, cfg *config.Config, activeOnly bool) error {
	a, err := build(l, cfg)
	if err != nil {
		return err
	}
	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	session, ok := a.session.Session()
	if !ok {
		return fmt.Errorf("%w; run the login command first", myerrors.ErrNoSession)
	}
	defer a.realtime.Close()

	if err := a.directory.Load(ctx, session); err != nil {
		l.Action("list_freights").Warn("company directory unavailable", "reason", err.Error())
	}

	list := a.freights.List
	if activeOnly {
		list = a.freights.Active
	}
	freights, err := list(ctx)
	if err != nil {
		return err
	}
	for _, f := range freights {
		status := string(f.Booking.Status)
		if status == "" {
			status = "unknown"
		}
		if f.InMotion() {
			status += ", in transit"
		}
		fmt.Printf("%s  %s -> %s  [%s]  %s\n",
			f.ID, f.Start.City, f.Destination.City, status, a.directory.CompanyName(f.Company))
	}
	return nil
}
