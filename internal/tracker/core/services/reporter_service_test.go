package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-tracker/internal/tracker/core/domain/model"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
)

func testSession() model.Session {
	return model.Session{
		User: model.User{
			MongoID:    "u1",
			CompanyRef: "c1",
			FirstName:  "Dana",
			Email:      "dana@firma.de",
		},
		Tokens: model.AuthTokens{AccessToken: "tok"},
	}
}

func visibleWith(userIDs ...string) []websocketdto.VisibleLocation {
	var list []websocketdto.VisibleLocation
	for _, id := range userIDs {
		list = append(list, websocketdto.VisibleLocation{
			LocationUpdatePayload: model.LocationUpdatePayload{
				UserID:    id,
				CompanyID: "c1",
				Point:     model.LocationPoint{Lat: 48.1, Lng: 11.5, Timestamp: time.Now().UnixMilli()},
			},
		})
	}
	return list
}

func newTestReporter(rt *mockRealtime, g *mockGPS, grace time.Duration) *ReporterService {
	return NewReporterService(rt, g, ReporterOptions{
		Grace:         grace,
		WatchInterval: 10 * time.Millisecond,
		WatchDistance: 1,
	}, testLogger())
}

func TestReporter_ServerTrustIsOneWay(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, time.Hour)

	require.NoError(t, r.Start(context.Background(), testSession()))
	require.Equal(t, StateAwaitingServer, r.State())

	rt.push(websocketdto.LocationsVisible, visibleWith("other", "u1"))
	require.Equal(t, StateServerTrusted, r.State())

	// A later message omitting the user is a transient gap, not a
	// disconnection.
	rt.push(websocketdto.LocationsVisible, visibleWith("other"))
	assert.Equal(t, StateServerTrusted, r.State())
	assert.False(t, g.watching(), "local polling must stay off once trusted")

	r.Stop()
}

func TestReporter_ImmediateFallbackWhenConnectFails(t *testing.T) {
	rt := newMockRealtime()
	rt.connectErr = errors.New("dial tcp: connection refused")
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, time.Hour)

	require.NoError(t, r.Start(context.Background(), testSession()))

	// No grace period wait: the connection attempt failed outright.
	assert.Equal(t, StateLocalFallback, r.State())
	assert.True(t, g.watching())

	r.Stop()
}

func TestReporter_GraceExpiryThenLateServerHit(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, 15*time.Millisecond)

	require.NoError(t, r.Start(context.Background(), testSession()))

	require.Eventually(t, func() bool {
		return r.State() == StateLocalFallback
	}, time.Second, 5*time.Millisecond, "grace expiry must switch to local fallback")
	require.True(t, g.watching())

	// A server hit arriving after the grace period still wins and stops
	// local polling.
	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))
	assert.Equal(t, StateServerTrusted, r.State())
	assert.False(t, g.watching())

	r.Stop()
}

func TestReporter_FeedWithoutUserStartsPollingBeforeGrace(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, time.Hour)

	require.NoError(t, r.Start(context.Background(), testSession()))

	// The feed answers but without us: polling starts without waiting for
	// the grace timer.
	rt.push(websocketdto.LocationsVisible, visibleWith("other"))
	assert.Equal(t, StateLocalFallback, r.State())
	assert.True(t, g.watching())

	r.Stop()
}

func TestReporter_EmitsOwnPositionOnlyWhileFallback(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, 10*time.Millisecond)

	require.NoError(t, r.Start(context.Background(), testSession()))
	require.Eventually(t, func() bool {
		return r.State() == StateLocalFallback
	}, time.Second, 5*time.Millisecond)

	g.fire(model.LocationPoint{Lat: 48.01, Lng: 11.01, Timestamp: 42})
	updates := rt.emittedOfType(websocketdto.LocationUpdate)
	// One from the initial fix, one from the fired sample.
	require.Len(t, updates, 2)

	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))
	require.Equal(t, StateServerTrusted, r.State())

	// Samples after trust must not be emitted.
	g.fire(model.LocationPoint{Lat: 48.02, Lng: 11.02, Timestamp: 43})
	assert.Len(t, rt.emittedOfType(websocketdto.LocationUpdate), 2)

	r.Stop()
}

func TestReporter_RecenterFiresOnceOnFirstTrust(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, time.Hour)

	var recenters []model.LocationPoint
	r.OnRecenter = func(p model.LocationPoint) { recenters = append(recenters, p) }

	require.NoError(t, r.Start(context.Background(), testSession()))

	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))
	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))
	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))

	assert.Len(t, recenters, 1)

	r.Stop()
}

func TestReporter_SubscribesOnStart(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, time.Hour)

	require.NoError(t, r.Start(context.Background(), testSession()))
	require.Len(t, rt.emittedOfType(websocketdto.LocationsSubscribe), 1)
	require.Equal(t, []string{"tok"}, rt.connects)

	r.Stop()
}

func TestReporter_StopReturnsToIdle(t *testing.T) {
	rt := newMockRealtime()
	g := &mockGPS{current: model.LocationPoint{Lat: 48, Lng: 11}}
	r := newTestReporter(rt, g, 10*time.Millisecond)

	require.NoError(t, r.Start(context.Background(), testSession()))
	require.Eventually(t, func() bool {
		return r.State() == StateLocalFallback
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	assert.Equal(t, StateIdle, r.State())
	assert.False(t, g.watching())

	// Feed messages after teardown are ignored.
	rt.push(websocketdto.LocationsVisible, visibleWith("u1"))
	assert.Equal(t, StateIdle, r.State())
}
