package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// MockToken is the sentinel credential of the local/dev auth bypass. No
// realtime connection is opened for it because the backend would reject it.
const MockToken = "mock"

// SessionService owns the authenticated session and the realtime connection
// lifecycle tied to it.
type SessionService struct {
	store    driven.ICredentialStore
	backend  driven.IBackend
	realtime driven.IRealtime
	mockAuth bool
	mylog    mylogger.Logger

	mu      sync.Mutex
	session *model.Session
}

func NewSessionService(
	store driven.ICredentialStore,
	backend driven.IBackend,
	realtime driven.IRealtime,
	mockAuth bool,
	mylog mylogger.Logger,
) *SessionService {
	return &SessionService{
		store:    store,
		backend:  backend,
		realtime: realtime,
		mockAuth: mockAuth,
		mylog:    mylog,
	}
}

// Session returns a copy of the current session, if any.
func (s *SessionService) Session() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// Token is the bearer token of the current session, "" when logged out.
func (s *SessionService) Token(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.Tokens.AccessToken
}

// Restore rebuilds the session from the credential store. A persisted user
// record missing its identifier, email or first name is treated as corrupt:
// both entries are deleted and the session stays empty.
func (s *SessionService) Restore(ctx context.Context) error {
	log := s.mylog.Action("restore")

	token, err := s.store.Get(ctx, driven.KeyAccessToken)
	if err != nil {
		if errors.Is(err, myerrors.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("reading stored token: %w", err)
	}

	userJSON, err := s.store.Get(ctx, driven.KeyUser)
	if err != nil {
		if errors.Is(err, myerrors.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("reading stored user: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		log.Warn("stored user record is not valid JSON, clearing credentials")
		s.clearStored(ctx)
		return nil
	}

	session := model.Session{
		User:   user,
		Tokens: model.AuthTokens{AccessToken: token},
	}
	if !session.Valid() {
		log.Warn("stored user record is incomplete, clearing credentials")
		s.clearStored(ctx)
		return nil
	}

	if token != MockToken && tokenExpired(token) {
		log.Warn("stored access token is expired", "user_id", user.ID())
	}

	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()
	log.Info("session restored", "user_id", user.ID(), "company_id", user.Company())

	if token != MockToken {
		if err := s.realtime.Connect(ctx, token); err != nil {
			log.Warn("realtime connect failed after restore", "reason", err.Error())
		}
	}
	return nil
}

// Login authenticates against the backend, persists the credentials and
// opens the realtime connection. In mock mode the backend is bypassed
// entirely.
func (s *SessionService) Login(ctx context.Context, email, password string) (model.Session, error) {
	log := s.mylog.Action("login")

	if s.mockAuth {
		session := mockSession(email)
		if err := s.persist(ctx, session); err != nil {
			return model.Session{}, err
		}
		s.mu.Lock()
		s.session = &session
		s.mu.Unlock()
		log.Info("mock session established", "user_id", session.User.ID())
		return session, nil
	}

	if email == "" || password == "" {
		return model.Session{}, myerrors.ErrMissingCredentials
	}

	session, err := s.backend.Login(ctx, dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		return model.Session{}, err
	}

	if err := s.persist(ctx, session); err != nil {
		return model.Session{}, err
	}

	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()
	log.Info("logged in", "user_id", session.User.ID(), "company_id", session.User.Company())

	if session.Tokens.AccessToken != MockToken {
		if err := s.realtime.Connect(ctx, session.Tokens.AccessToken); err != nil {
			log.Warn("realtime connect failed after login", "reason", err.Error())
		}
	}
	return session, nil
}

// Register creates a new account. The session stays untouched; a fresh
// account has to be approved by an administrator before it can log in.
func (s *SessionService) Register(ctx context.Context, req dto.RegisterRequest) error {
	if req.Email == "" || req.Password == "" {
		return myerrors.ErrMissingCredentials
	}
	if err := s.backend.Register(ctx, req); err != nil {
		return err
	}
	s.mylog.Action("register").Info("account registered", "email", req.Email, "role", string(req.Role))
	return nil
}

// Logout clears the in-memory session first so callers observe the logout
// immediately, then closes the realtime connection, then clears persisted
// credentials. Storage failures never block the logout.
func (s *SessionService) Logout(ctx context.Context) {
	log := s.mylog.Action("logout")

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if err := s.realtime.Close(); err != nil {
		log.Warn("closing realtime connection", "reason", err.Error())
	}

	s.clearStored(ctx)
	log.Info("logged out")
}

func (s *SessionService) persist(ctx context.Context, session model.Session) error {
	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}
	if err := s.store.Set(ctx, driven.KeyAccessToken, session.Tokens.AccessToken); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	if err := s.store.Set(ctx, driven.KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("persisting user record: %w", err)
	}
	return nil
}

func (s *SessionService) clearStored(ctx context.Context) {
	log := s.mylog.Action("clearStored")
	if err := s.store.Delete(ctx, driven.KeyAccessToken); err != nil {
		log.Warn("deleting stored token", "reason", err.Error())
	}
	if err := s.store.Delete(ctx, driven.KeyUser); err != nil {
		log.Warn("deleting stored user", "reason", err.Error())
	}
}

// tokenExpired inspects the exp claim without verifying the signature; the
// agent has no signing key and only wants an early warning.
func tokenExpired(tokenString string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return time.Now().Unix() >= int64(exp)
}

// mockSession derives a deterministic dev session from the email prefix, the
// same convention the backend seeds use.
func mockSession(email string) model.Session {
	if email == "" {
		email = "driver@example.com"
	}
	lower := strings.ToLower(email)

	role := model.RoleDriver
	switch {
	case strings.HasPrefix(lower, "admin"):
		role = model.RoleAdmin
	case strings.HasPrefix(lower, "carrier"):
		role = model.RoleCarrier
	case strings.HasPrefix(lower, "supplier"):
		role = model.RoleSupplier
	case strings.HasPrefix(lower, "warehouse"):
		role = model.RoleWarehouse
	}

	id := "1"
	company := "C1"
	switch role {
	case model.RoleAdmin:
		id, company = "2", "HQ"
	case model.RoleCarrier:
		id = "3"
	case model.RoleSupplier:
		id, company = "4", "SUP"
	case model.RoleWarehouse:
		id = "5"
	}

	return model.Session{
		User: model.User{
			AltID:      id,
			AltCompany: company,
			FirstName:  strings.ToUpper(string(role)[:1]) + string(role)[1:],
			LastName:   "Mock",
			Email:      email,
			Roles:      []model.Role{role},
		},
		Tokens: model.AuthTokens{AccessToken: MockToken},
	}
}
