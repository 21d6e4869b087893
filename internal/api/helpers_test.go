package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/miraie-core/internal/audit"
	"github.com/nerrad567/miraie-core/internal/auth"
	"github.com/nerrad567/miraie-core/internal/components/miraie"
	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
	"github.com/nerrad567/miraie-core/internal/infrastructure/logging"
)

const (
	testJWTSecret     = "test-secret-key-at-least-32-chars!"
	testAdminPassword = "correct horse"
	badPassword       = "wrong"
)

var (
	adminHashOnce sync.Once
	adminHash     string
)

// testAdminHash hashes the admin password once per test binary.
func testAdminHash(t *testing.T) string {
	t.Helper()
	adminHashOnce.Do(func() {
		h, err := auth.HashPassword(testAdminPassword)
		if err != nil {
			t.Fatalf("HashPassword() error = %v", err)
		}
		adminHash = h
	})
	return adminHash
}

// displaySwitch is a switch entity owned by the test integration.
type displaySwitch struct {
	mu       sync.Mutex
	uniqueID string
	name     string
	on       bool
	writer   hass.StateWriter
}

func (s *displaySwitch) UniqueID() string            { return s.uniqueID }
func (s *displaySwitch) Name() string                { return s.name }
func (s *displaySwitch) Available() bool             { return true }
func (s *displaySwitch) DeviceInfo() hass.DeviceInfo { return hass.DeviceInfo{Name: s.name} }
func (s *displaySwitch) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *displaySwitch) set(on bool) error {
	s.mu.Lock()
	s.on = on
	w := s.writer
	s.mu.Unlock()
	if w != nil {
		w.WriteState(s)
	}
	return nil
}

func (s *displaySwitch) TurnOn(context.Context) error  { return s.set(true) }
func (s *displaySwitch) TurnOff(context.Context) error { return s.set(false) }

func (s *displaySwitch) AddedToHost(_ context.Context, w hass.StateWriter) error {
	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()
	return nil
}

func (s *displaySwitch) WillRemoveFromHost(context.Context) error {
	s.mu.Lock()
	s.writer = nil
	s.mu.Unlock()
	return nil
}

var errBadCredentials = errors.New("invalid username or password")

// testIntegration stands in for the MirAIe integration: one display
// switch per account, and setup fails for badPassword.
type testIntegration struct{}

func (testIntegration) Domain() string { return miraie.Domain }

func (testIntegration) SetupEntry(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry) error {
	if entry.Data[miraie.ConfPassword] == badPassword {
		return errBadCredentials
	}
	return h.ForwardEntrySetups(ctx, entry, hass.DomainSwitch)
}

func (testIntegration) UnloadEntry(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry) (bool, error) {
	return h.UnloadPlatforms(ctx, entry, hass.DomainSwitch)
}

func registerTestIntegration(h *hass.Host) {
	h.RegisterIntegration(testIntegration{})
	h.RegisterPlatform(miraie.Domain, hass.DomainSwitch,
		func(ctx context.Context, _ *hass.Host, entry *hass.ConfigEntry, add hass.AddEntitiesFunc) error {
			return add(ctx, &displaySwitch{
				uniqueID: "dev-" + entry.Data[miraie.ConfUsername],
				name:     entry.Title + " display mode",
				on:       true,
			})
		})
}

type fakeBroker struct{ connected bool }

func (b fakeBroker) IsConnected() bool { return b.connected }

type testEnv struct {
	host   *hass.Host
	server *Server
	http   *httptest.Server
	audit  *memoryAudit
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	host := hass.NewHost(hass.HostOptions{RetryInitial: time.Hour, RetryMax: time.Hour})
	registerTestIntegration(host)
	t.Cleanup(func() {
		//nolint:errcheck // test teardown
		host.Shutdown(context.Background())
	})

	sec := config.SecurityConfig{}
	sec.JWT.Secret = testJWTSecret
	sec.JWT.AccessTokenTTL = 15
	sec.Admin.Username = "admin"
	sec.Admin.PasswordHash = testAdminHash(t)

	trail := &memoryAudit{}
	srv, err := New(Deps{
		Config:   config.APIConfig{},
		WS:       config.WebSocketConfig{PingInterval: 30, PongTimeout: 10, MaxMessageSize: 4096},
		Logger:   logging.Discard(),
		Host:     host,
		Auth:     auth.NewAuthenticator(sec),
		Audit:    trail,
		MQTT:     fakeBroker{connected: true},
		Gatherer: prometheus.NewRegistry(),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	host.AddStateListener(srv.Hub())

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	token, _, err := auth.IssueToken("admin", testJWTSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return &testEnv{host: host, server: srv, http: ts, audit: trail, token: token}
}

// do sends an authenticated request and decodes a JSON response into out.
func (e *testEnv) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	return e.request(t, method, path, e.token, body, out)
}

func (e *testEnv) request(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// addAccount runs the config flow for username and fails the test unless
// it returns 201.
func (e *testEnv) addAccount(t *testing.T, title, username string) hass.ConfigEntry {
	t.Helper()
	var entry hass.ConfigEntry
	status := e.do(t, http.MethodPost, "/api/v1/entries", map[string]string{
		"title": title, "username": username, "password": "secret",
	}, &entry)
	if status != http.StatusCreated {
		t.Fatalf("POST /entries status = %d, want 201", status)
	}
	return entry
}

// memoryAudit is an in-memory audit.Repository.
type memoryAudit struct {
	mu      sync.Mutex
	records []audit.Record
}

func (m *memoryAudit) Create(_ context.Context, r *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Outcome == "" {
		r.Outcome = audit.OutcomeOK
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *memoryAudit) List(_ context.Context, f audit.Filter) (*audit.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &audit.Page{Records: []audit.Record{}, Limit: f.Limit}
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if f.Action != "" && r.Action != f.Action {
			continue
		}
		page.Records = append(page.Records, r)
	}
	page.Total = len(page.Records)
	return page, nil
}

func (m *memoryAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Action+":"+r.Outcome)
	}
	return out
}
