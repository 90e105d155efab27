package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// LocationTaskService is the background location task: it runs outside the
// foreground session lifecycle, reads credentials from durable storage only,
// and never propagates an error anywhere. Failed ingests land in the offline
// queue; the queue is flushed in one bulk request after the next successful
// ingest.
type LocationTaskService struct {
	store   driven.ICredentialStore
	queue   driven.IOfflineQueue
	backend driven.IBackend
	mylog   mylogger.Logger

	flushMu sync.Mutex
}

func NewLocationTaskService(
	store driven.ICredentialStore,
	queue driven.IOfflineQueue,
	backend driven.IBackend,
	mylog mylogger.Logger,
) *LocationTaskService {
	return &LocationTaskService{
		store:   store,
		queue:   queue,
		backend: backend,
		mylog:   mylog,
	}
}

// HandleBatch processes one scheduler invocation. Only the most recent sample
// is sent; without stored credentials there is no session to attribute the
// sample to and the batch is dropped.
func (t *LocationTaskService) HandleBatch(ctx context.Context, samples []model.LocationPoint) {
	log := t.mylog.Action("bg_location")

	if len(samples) == 0 {
		return
	}
	last := samples[len(samples)-1]

	user, ok := t.loadUser(ctx)
	if !ok {
		return
	}

	payload := model.LocationUpdatePayload{
		UserID:    user.ID(),
		CompanyID: user.Company(),
		Point:     last,
	}

	if err := t.backend.IngestLocation(ctx, payload); err != nil {
		log.Warn("ingest failed, queueing payload", "reason", err.Error())
		if err := t.queue.Append(ctx, payload); err != nil {
			log.Warn("queueing payload failed", "reason", err.Error())
		}
		return
	}

	t.flushQueue(ctx)
}

// flushQueue sends every queued payload in one bulk request. The queue is
// cleared only when the flush succeeds; otherwise entries stay for the next
// attempt.
func (t *LocationTaskService) flushQueue(ctx context.Context) {
	log := t.mylog.Action("flush_queue")

	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	entries, err := t.queue.Load(ctx)
	if err != nil {
		log.Warn("loading queue failed", "reason", err.Error())
		return
	}
	if len(entries) == 0 {
		return
	}

	if err := t.backend.BulkLocations(ctx, entries); err != nil {
		log.Warn("bulk flush failed, queue kept", "entries", len(entries), "reason", err.Error())
		return
	}
	if err := t.queue.Clear(ctx); err != nil {
		log.Warn("clearing queue failed", "reason", err.Error())
		return
	}
	log.Info("offline queue flushed", "entries", len(entries))
}

// Run drives the task from a location source on a fixed schedule, the
// agent-side equivalent of the OS background scheduler. Blocks until ctx is
// cancelled.
func (t *LocationTaskService) Run(ctx context.Context, source driven.ILocationSource, interval time.Duration, distance float64) error {
	log := t.mylog.Action("bg_scheduler")

	stop, err := source.Watch(ctx, driven.WatchOptions{
		IntervalMillis: interval.Milliseconds(),
		DistanceMeters: distance,
	}, func(p model.LocationPoint) {
		t.HandleBatch(ctx, []model.LocationPoint{p})
	})
	if err != nil {
		return err
	}
	defer stop()

	log.Info("background location task scheduled", "interval", interval.String(), "distance_m", distance)
	<-ctx.Done()
	return nil
}

func (t *LocationTaskService) loadUser(ctx context.Context) (model.User, bool) {
	log := t.mylog.Action("load_credentials")

	if _, err := t.store.Get(ctx, driven.KeyAccessToken); err != nil {
		if !errors.Is(err, myerrors.ErrKeyNotFound) {
			log.Warn("reading stored token", "reason", err.Error())
		}
		return model.User{}, false
	}

	userJSON, err := t.store.Get(ctx, driven.KeyUser)
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
