package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/myerrors"
)

func testLogger() mylogger.Logger {
	l, err := mylogger.New(mylogger.LevelError, "")
	if err != nil {
		panic(err)
	}
	return l
}

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, func(context.Context) string { return token }, testLogger())
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	_, err := c.Freights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_NoSessionMeansNoAuthHeader(t *testing.T) {
	var hasAuth bool
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	})

	_, err := c.Freights(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"token":"tok","data":{"user":{"_id":"u1","email":"d@f.de","firstName":"Dana"}}}`))
	})

	session, err := c.Login(context.Background(), dto.LoginRequest{Email: "d@f.de", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Tokens.AccessToken)
	assert.Equal(t, "u1", session.User.ID())
}

func TestClient_LoginRejectedMapsToSentinels(t *testing.T) {
	for status, want := range map[int]error{
		http.StatusUnauthorized: myerrors.ErrInvalidCredentials,
		http.StatusForbidden:    myerrors.ErrAccountPendingApproval,
	} {
		c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"no entry"}`))
		})

		_, err := c.Login(context.Background(), dto.LoginRequest{Email: "d@f.de", Password: "x"})
		assert.ErrorIs(t, err, want)

		var apiErr *myerrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "no entry", apiErr.Message)
	}
}

func TestClient_RegisterSendsFullPayload(t *testing.T) {
	var got dto.RegisterRequest
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	req := dto.RegisterRequest{
		Company:         "Spedition Huber",
		FirstName:       "Dana",
		LastName:        "Weber",
		Email:           "dana@firma.de",
		Password:        "secret",
		Role:            model.RoleCarrier,
		Address:         model.Address{City: "München", Zip: "80331", Street: "Sendlinger Str.", HouseNumber: "7", Country: "DE"},
		AgreedToTerms:   true,
		AgreedToPrivacy: true,
	}
	require.NoError(t, c.Register(context.Background(), req))

	assert.Equal(t, req, got)
	assert.True(t, got.AgreedToTerms)
	assert.True(t, got.AgreedToPrivacy)
}

func TestClient_ServerMessageFromErrorField(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database on fire"}`))
	})

	_, err := c.Freights(context.Background())
	var apiErr *myerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database on fire", apiErr.Message)
}

func TestClient_ListDecoding(t *testing.T) {
	bodies := map[string]string{
		"bare array": `[{"_id":"c1","name":"Spedition Huber"}]`,
		"wrapped":    `{"data":[{"_id":"c1","name":"Spedition Huber"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			companies, err := c.Companies(context.Background())
			require.NoError(t, err)
			require.Len(t, companies, 1)
			assert.Equal(t, "c1", companies[0].ID)
		})
	}
}

func TestClient_GeofencesScopedToCompany(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geofences", r.URL.Path)
		assert.Equal(t, "c1", r.URL.Query().Get("companyId"))
		w.Write([]byte(`[{"id":"depot","lat":48.1,"lng":11.5,"radius":100}]`))
	})

	regions, err := c.Geofences(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "depot", regions[0].ID)
}

func TestClient_BulkLocationsWrapsItems(t *testing.T) {
	var gotBody string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	err := c.BulkLocations(context.Background(), []model.LocationUpdatePayload{
		{UserID: "u1", Point: model.LocationPoint{Lat: 48.1, Lng: 11.5, Timestamp: 1}},
	})
	require.NoError(t, err)
	assert.Contains(t, gotBody, `"items":[`)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>502</html>`))
	})

	_, err := c.Freights(context.Background())
	var apiErr *myerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
}
