package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darlinghurst56/taskmaster/api"
	"github.com/Darlinghurst56/taskmaster/config"
	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/tracker"
)

type alwaysAliveProber struct{}

func (alwaysAliveProber) Alive(pid int) bool { return true }

func newServerEnv(t *testing.T) (*api.Handler, *echo.Echo) {
	t.Helper()
	trk, err := tracker.New(tracker.Options{Prober: alwaysAliveProber{}})
	require.NoError(t, err)
	handler := api.NewHandler(nil, nil, trk, nil, &config.Config{})
	return handler, echo.New()
}

func registerServer(t *testing.T, handler *api.Handler, e *echo.Echo, pid, port int) domain.TrackedServer {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/api/servers", tracker.RegisterRequest{
		PID:        pid,
		Port:       port,
		ServerType: "api",
	})
	rec := httptest.NewRecorder()
	require.NoError(t, handler.RegisterServer(e.NewContext(req, rec)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Server domain.TrackedServer `json:"server"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Server
}

func TestRegisterServerEndpoint(t *testing.T) {
	handler, e := newServerEnv(t)

	server := registerServer(t, handler, e, 4321, 3000)
	assert.Equal(t, domain.ServerStatusStarting, server.Status)
	assert.Equal(t, 4321, server.PID)
	assert.Equal(t, 3000, server.Port)
	assert.NotEmpty(t, server.ID)
}

func TestRegisterServerValidation(t *testing.T) {
	handler, e := newServerEnv(t)

	req := jsonRequest(http.MethodPost, "/api/servers", tracker.RegisterRequest{Port: 3000})
	rec := httptest.NewRecorder()

	err := handler.RegisterServer(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetServerByPortEndpoint(t *testing.T) {
	handler, e := newServerEnv(t)
	registerServer(t, handler, e, 4321, 3000)

	req := httptest.NewRequest(http.MethodGet, "/api/servers/3000", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/servers/:id")
	c.SetParamNames("id")
	c.SetParamValues("3000")

	err := handler.GetServer(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Server domain.TrackedServer `json:"server"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4321, resp.Server.PID)
}

func TestGetServerNotFound(t *testing.T) {
	handler, e := newServerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/servers/9999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/servers/:id")
	c.SetParamNames("id")
	c.SetParamValues("9999")

	err := handler.GetServer(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateServerStatusEndpoint(t *testing.T) {
	handler, e := newServerEnv(t)
	server := registerServer(t, handler, e, 4321, 3000)

	req := jsonRequest(http.MethodPost, "/api/servers/"+server.ID+"/status", map[string]string{
		"status": "running",
		"reason": "startup complete",
	})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/servers/:id/status")
	c.SetParamNames("id")
	c.SetParamValues(server.ID)

	err := handler.UpdateServerStatus(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Server domain.TrackedServer `json:"server"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ServerStatusRunning, resp.Server.Status)
	assert.Len(t, resp.Server.StatusHistory, 2)
}

func TestListServersEndpoint(t *testing.T) {
	handler, e := newServerEnv(t)
	for i := 0; i < 3; i++ {
		registerServer(t, handler, e, 100+i, 3000+i)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	rec := httptest.NewRecorder()

	err := handler.ListServers(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int                    `json:"count"`
		Servers []domain.TrackedServer `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Servers, 3)
}

func TestUnregisterServerEndpoint(t *testing.T) {
	handler, e := newServerEnv(t)
	server := registerServer(t, handler, e, 4321, 3000)

	del := func() int {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/servers/%s", server.ID), nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/servers/:id")
		c.SetParamNames("id")
		c.SetParamValues(server.ID)
		require.NoError(t, handler.UnregisterServer(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, del())
	assert.Equal(t, http.StatusNotFound, del())
}
