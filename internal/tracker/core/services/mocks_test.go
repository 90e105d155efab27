package services

import (
	"context"
	"encoding/json"
	"sync"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
)

func marshalRaw(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func testLogger() mylogger.Logger {
	l, err := mylogger.New(mylogger.LevelError, "")
	if err != nil {
		panic(err)
	}
	return l
}

// mockStore is an in-memory credential store.
type mockStore struct {
	mu        sync.Mutex
	values    map[string]string
	deleteErr error
	deleted   []string
}

func newMockStore() *mockStore {
	return &mockStore{values: map[string]string{}}
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", myerrors.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.values, key)
	return nil
}

// mockQueue is an in-memory offline queue.
type mockQueue struct {
	mu      sync.Mutex
	entries []model.LocationUpdatePayload
	loadErr error
}

func (m *mockQueue) Append(ctx context.Context, p model.LocationUpdatePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, p)
	return nil
}

func (m *mockQueue) Load(ctx context.Context) ([]model.LocationUpdatePayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]model.LocationUpdatePayload, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockQueue) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *mockQueue) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// mockBackend records calls and returns scripted results.
type mockBackend struct {
	mu sync.Mutex

	loginFn     func(req dto.LoginRequest) (model.Session, error)
	registerErr error
	ingestErr   error
	bulkErr     error
	geofences   []model.GeofenceRegion
	gfErr       error
	eventErr    error
	companies   []model.Company
	searchErr   error
	listErr     error
	ownCompany  *model.Company
	freightLst  []model.Freight

	ingestCalls []model.LocationUpdatePayload
	bulkCalls   [][]model.LocationUpdatePayload
	eventCalls  []model.GeofenceEvent
	registered  []dto.RegisterRequest
}

func (m *mockBackend) Login(ctx context.Context, req dto.LoginRequest) (model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(req)
	}
	return model.Session{}, myerrors.ErrInvalidCredentials
}

func (m *mockBackend) Register(ctx context.Context, req dto.RegisterRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, req)
	return m.registerErr
}

func (m *mockBackend) Freights(ctx context.Context) ([]model.Freight, error) {
	return m.freightLst, nil
}

func (m *mockBackend) Companies(ctx context.Context) ([]model.Company, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.companies, nil
}

func (m *mockBackend) SearchCompanies(ctx context.Context) ([]model.Company, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.companies, nil
}

func (m *mockBackend) CompanyByID(ctx context.Context, id string) (model.Company, error) {
	if m.ownCompany != nil {
		return *m.ownCompany, nil
	}
	return model.Company{}, myerrors.ErrKeyNotFound
}

func (m *mockBackend) Geofences(ctx context.Context, companyID string) ([]model.GeofenceRegion, error) {
	if m.gfErr != nil {
		return nil, m.gfErr
	}
	return m.geofences, nil
}

func (m *mockBackend) IngestLocation(ctx context.Context, payload model.LocationUpdatePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestCalls = append(m.ingestCalls, payload)
	return m.ingestErr
}

func (m *mockBackend) BulkLocations(ctx context.Context, items []model.LocationUpdatePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]model.LocationUpdatePayload, len(items))
	copy(cp, items)
	m.bulkCalls = append(m.bulkCalls, cp)
	return m.bulkErr
}

func (m *mockBackend) PostGeofenceEvent(ctx context.Context, event model.GeofenceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCalls = append(m.eventCalls, event)
	return m.eventErr
}

// mockRealtime is a scriptable realtime channel.
type mockRealtime struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	closed     int
	connects   []string
	emitted    []websocketdto.Event
	handlers   map[string][]driven.EventHandler
}

func newMockRealtime() *mockRealtime {
	return &mockRealtime{handlers: map[string][]driven.EventHandler{}}
}

func (m *mockRealtime) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects = append(m.connects, token)
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockRealtime) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockRealtime) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	m.connected = false
	return nil
}

func (m *mockRealtime) Emit(eventType string, data any) error {
	raw, err := marshalRaw(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, websocketdto.Event{Type: eventType, Data: raw})
	return nil
}

func (m *mockRealtime) On(eventType string, h driven.EventHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[eventType] = append(m.handlers[eventType], h)
	idx := len(m.handlers[eventType]) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.handlers[eventType][idx] = nil
	}
}

// push delivers an inbound event to registered handlers, like the read loop
// would.
func (m *mockRealtime) push(eventType string, data any) {
	raw, err := marshalRaw(data)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	hs := append([]driven.EventHandler(nil), m.handlers[eventType]...)
	m.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(websocketdto.Event{Type: eventType, Data: raw})
		}
	}
}

func (m *mockRealtime) emittedOfType(eventType string) []websocketdto.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []websocketdto.Event
	for _, e := range m.emitted {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// mockGPS hands out a fixed point and lets tests fire watch samples by hand.
type mockGPS struct {
	mu         sync.Mutex
	current    model.LocationPoint
	currentErr error
	watchFn    func(model.LocationPoint)
	stops      int
}

func (m *mockGPS) Current(ctx context.Context) (model.LocationPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentErr != nil {
		return model.LocationPoint{}, m.currentErr
	}
	return m.current, nil
}

func (m *mockGPS) Watch(ctx context.Context, opts driven.WatchOptions, fn func(model.LocationPoint)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchFn = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stops++
		m.watchFn = nil
	}, nil
}

func (m *mockGPS) fire(p model.LocationPoint) {
	m.mu.Lock()
	fn := m.watchFn
	m.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (m *mockGPS) watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watchFn != nil
}

// mockNotifier counts raised notifications.
type mockNotifier struct {
	mu     sync.Mutex
	calls  []string
	sendFn func(title, body string) error
}

func (m *mockNotifier) Notify(ctx context.Context, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, title+": "+body)
	if m.sendFn != nil {
		return m.sendFn(title, body)
	}
	return nil
}
