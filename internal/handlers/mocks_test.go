package handlers

import (
	"context"
	"net/http"
	"sync"

	"drying_oven/internal/models"
	"drying_oven/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockOven counts commands by name and fails those listed in errs.
type mockOven struct {
	calls      map[string]int
	errs       map[string]error
	lastPreset int
	presets    []models.Preset
}

func (m *mockOven) call(name string) error {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
	return m.errs[name]
}

func (m *mockOven) Start(ctx context.Context) error          { return m.call("start") }
func (m *mockOven) Stop(ctx context.Context) error           { return m.call("stop") }
func (m *mockOven) PauseWait(ctx context.Context) error      { return m.call("pause") }
func (m *mockOven) ResumeFromWait(ctx context.Context) error { return m.call("resume") }
func (m *mockOven) ToggleFan230(ctx context.Context) error   { return m.call("fan230") }
func (m *mockOven) ToggleLamp(ctx context.Context) error     { return m.call("lamp") }
func (m *mockOven) SelectPreset(ctx context.Context, id int) error {
	m.lastPreset = id
	return m.call("preset")
}
func (m *mockOven) Presets() []models.Preset { return m.presets }

// mockMonitoring is read by websocket writers while tests update it.
type mockMonitoring struct {
	mu    sync.Mutex
	state models.OvenRuntimeSnapshot
	link  models.LinkDiagnostics
}

func (m *mockMonitoring) GetState() models.OvenRuntimeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockMonitoring) GetLink() models.LinkDiagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link
}

func (m *mockMonitoring) setState(st models.OvenRuntimeSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

type mockEventLog struct {
	resp  []models.OvenEvent
	err   error
	last  service.LogFilter
	calls int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.OvenEvent, error) {
	m.last = f
	m.calls++
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func authorize(req *http.Request) {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
}
