package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/realtime"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/storage"
	"github.com/spec-kit/complaint-service/internal/testutil"
)

const serviceToken = "bot-secret"

type observerConn struct {
	mu     sync.Mutex
	frames []events.Event
}

func (c *observerConn) WriteMessage(_ int, data []byte) error {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, event)
	return nil
}

func (c *observerConn) SetWriteDeadline(time.Time) error { return nil }
func (c *observerConn) Close() error                     { return nil }

func (c *observerConn) types() []events.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.EventType, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Type)
	}
	return out
}

type testServer struct {
	app     *fiber.App
	store   *testutil.MockStore
	hub     *realtime.Hub
	runner  *service.EffectRunner
	tokens  *auth.TokenManager
	authSvc *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := testutil.NewMockStore()
	repos := store.Repositories()
	metrics := observability.NewMetrics()
	hub := realtime.NewHub(time.Second, logger, metrics)
	runner := service.NewEffectRunner(hub, events.NewInMemoryDispatcher(logger), logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	objects, err := storage.NewLocalStore(t.TempDir(), "http://files.test", logger)
	require.NoError(t, err)
	authSvc := service.NewAuthService(config.AuthConfig{BcryptCost: 4}, service.AuthDependencies{PorterRepo: repos.Porters, Tokens: tokens})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("complaint-api", "test", nil),
		Auth:   handlers.NewAuthHandler(authSvc),
		Complaints: handlers.NewComplaintsHandler(
			service.NewComplaintService(service.ComplaintDependencies{Repos: repos, UnitOfWork: store, Effects: runner}),
		),
		Photos: handlers.NewPhotosHandler(service.NewPhotoService(service.PhotoDependencies{
			TicketRepo: repos.Tickets,
			PhotoRepo:  repos.Photos,
			Store:      objects,
		})),
		Realtime:       handlers.NewRealtimeHandler(hub, logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.Porters, serviceToken),
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store, hub: hub, runner: runner, tokens: tokens, authSvc: authSvc}
}

func (s *testServer) tokenFor(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	_, token, err := s.tokens.GenerateToken(id, role)
	require.NoError(t, err)
	return token
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *nethttp.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func data(body map[string]any) map[string]any {
	out, _ := body["data"].(map[string]any)
	return out
}

func TestEndToEndLifecycle(t *testing.T) {
	srv := newTestServer(t)
	porterID := srv.store.AddPorter("Ada", domain.RolePorter, true)
	adminID := srv.store.AddPorter("Root", domain.RoleAdmin, true)
	porterToken := srv.tokenFor(t, porterID, domain.RolePorter)
	adminToken := srv.tokenFor(t, adminID, domain.RoleAdmin)

	adminConn := &observerConn{}
	porterConn := &observerConn{}
	srv.hub.Connect(adminConn, adminID, domain.RoleAdmin)
	srv.hub.Connect(porterConn, porterID, domain.RolePorter)

	status, body := srv.request(t, "POST", "/api/v1/complaints/submit", serviceToken, map[string]any{
		"reporter_id": "424242",
		"hostel":      "John",
		"room_number": "a101",
		"category":    "plumbing",
		"description": "Sink leaking under the cabinet",
		"severity":    "low",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "reported", body["status"])
	id, _ := body["complaint_id"].(string)
	require.NotEmpty(t, id)

	status, body = srv.request(t, "GET", "/api/v1/complaints/"+id, serviceToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	ticket := data(body)
	assert.Equal(t, "A101", ticket["room_number"])
	assert.Equal(t, "A", ticket["wing"])
	assert.Equal(t, "reported", ticket["status"])

	status, _ = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", porterToken, map[string]any{"status": "in_progress"})
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", porterToken, map[string]any{"status": "closed"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(body))

	status, _ = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", porterToken, map[string]any{"status": "resolved"})
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", porterToken, map[string]any{"status": "closed"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", adminToken, map[string]any{"status": "closed"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "closed", data(body)["status"])

	for _, next := range []string{"reported", "in_progress", "resolved", "rejected"} {
		status, body = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/status", adminToken, map[string]any{"status": next})
		assert.Equal(t, fiber.StatusBadRequest, status, next)
		assert.Equal(t, "INVALID_TRANSITION", errorCode(body), next)
	}

	srv.runner.Wait()
	assert.Equal(t, []events.EventType{
		events.EventNewTicket,
		events.EventStatusUpdate,
		events.EventStatusUpdate,
		events.EventStatusUpdate,
	}, adminConn.types())
	assert.Equal(t, []events.EventType{
		events.EventStatusUpdate,
		events.EventStatusUpdate,
		events.EventStatusUpdate,
	}, porterConn.types())
}

func TestAssignmentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	p1 := srv.store.AddPorter("Ada", domain.RolePorter, true)
	p2 := srv.store.AddPorter("Bo", domain.RolePorter, true)
	p1Token := srv.tokenFor(t, p1, domain.RolePorter)

	_, body := srv.request(t, "POST", "/api/v1/complaints/submit", serviceToken, map[string]any{
		"reporter_id": "1", "hostel": "Mary", "room_number": "B202", "category": "electrical",
		"description": "Bulb in the corridor is out", "severity": "medium",
	})
	id := body["complaint_id"].(string)

	status, body := srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/assign", p1Token, map[string]any{"assigned_porter_id": p2})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/assign", p1Token, map[string]any{"assigned_porter_id": p1})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, p1, data(body)["assigned_porter_id"])

	status, _ = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/assign", p1Token, map[string]any{"assigned_porter_id": p1})
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.request(t, "GET", "/api/v1/complaints/"+id+"/assignments", p1Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	entries, _ := body["data"].([]any)
	assert.Len(t, entries, 1)

	status, _ = srv.request(t, "PATCH", "/api/v1/complaints/"+id+"/assign", serviceToken, map[string]any{"assigned_porter_id": p1})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestListAndErrors(t *testing.T) {
	srv := newTestServer(t)
	for _, reporter := range []string{"1", "1", "2"} {
		status, _ := srv.request(t, "POST", "/api/v1/complaints/submit", serviceToken, map[string]any{
			"reporter_id": reporter, "hostel": "Paul", "room_number": "C303", "category": "pest",
			"description": "Cockroaches in the kitchen", "severity": "high",
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := srv.request(t, "GET", "/api/v1/complaints?reporter_id=1&page_size=1", serviceToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	items, _ := body["data"].([]any)
	assert.Len(t, items, 1)
	meta, _ := body["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total"])

	status, body = srv.request(t, "GET", "/api/v1/complaints?page=abc", serviceToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.request(t, "GET", "/api/v1/complaints/not-a-uuid", serviceToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = srv.request(t, "POST", "/api/v1/complaints/submit", serviceToken, map[string]any{
		"reporter_id": "1", "hostel": "Nowhere", "room_number": "Z1", "category": "pest",
		"description": "short", "severity": "extreme",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "hostel")
	assert.Contains(t, details, "room_number")
	assert.Contains(t, details, "description")
	assert.Contains(t, details, "severity")

	status, body = srv.request(t, "GET", "/api/v1/complaints", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = srv.request(t, "GET", "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestLoginAndRegister(t *testing.T) {
	srv := newTestServer(t)
	adminID := srv.store.AddPorter("Root", domain.RoleAdmin, true)
	porterID := srv.store.AddPorter("Ada", domain.RolePorter, true)

	register := map[string]any{"full_name": "Bo", "email": "bo@hostel.local", "password": "porter-pass"}
	status, _ := srv.request(t, "POST", "/auth/register", srv.tokenFor(t, porterID, domain.RolePorter), register)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := srv.request(t, "POST", "/auth/register", srv.tokenFor(t, adminID, domain.RoleAdmin), register)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "porter", data(body)["role"])

	form := url.Values{"username": {"bo@hostel.local"}, "password": {"porter-pass"}}
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, body = srv.send(t, req)
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "porter", body["role"])

	status, _ = srv.request(t, "GET", "/api/v1/complaints", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = srv.request(t, "POST", "/auth/login", "", map[string]any{"username": "bo@hostel.local", "password": "nope-nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestPhotoUploadEndpoint(t *testing.T) {
	srv := newTestServer(t)
	_, body := srv.request(t, "POST", "/api/v1/complaints/submit", serviceToken, map[string]any{
		"reporter_id": "1", "hostel": "Peter", "room_number": "D404", "category": "structural",
		"description": "Wardrobe door came off", "severity": "low",
	})
	id := body["complaint_id"].(string)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "door.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000000000"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/complaints/"+id+"/photos", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+serviceToken)
	status, body := srv.send(t, req)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "image/png", data(body)["mime_type"])

	status, body = srv.request(t, "GET", "/api/v1/complaints/"+id+"/photos", serviceToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	photos, _ := body["data"].([]any)
	assert.Len(t, photos, 1)
}

func TestRealtimeStatsAndHealthChecks(t *testing.T) {
	srv := newTestServer(t)
	adminID := srv.store.AddPorter("Root", domain.RoleAdmin, true)
	porterID := srv.store.AddPorter("Ada", domain.RolePorter, true)
	srv.hub.Connect(&observerConn{}, adminID, domain.RoleAdmin)
	srv.hub.Connect(&observerConn{}, porterID, domain.RolePorter)
	srv.hub.Connect(&observerConn{}, porterID, domain.RolePorter)

	status, body := srv.request(t, "GET", "/api/v1/realtime/stats", srv.tokenFor(t, adminID, domain.RoleAdmin), nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := data(body)
	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, map[string]any{"admin": float64(1), "porter": float64(2)}, stats["by_role"])

	status, _ = srv.request(t, "GET", "/api/v1/realtime/stats", srv.tokenFor(t, porterID, domain.RolePorter), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.request(t, "GET", "/ws?token="+srv.tokenFor(t, porterID, domain.RolePorter), "", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)

	status, body = srv.request(t, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, _ = srv.request(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "http_requests_total")
}
