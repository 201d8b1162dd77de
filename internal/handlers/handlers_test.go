package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/alilals/ziraat-backend/internal/handlers"
	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/routes"
	"github.com/alilals/ziraat-backend/internal/services"
	"github.com/alilals/ziraat-backend/internal/storage"
)

const testAdminKey = "test-admin-key"

type recordingSender struct {
	mu       sync.Mutex
	requests []models.SMSRequest
	err      error
}

func (s *recordingSender) Send(_ context.Context, req *models.SMSRequest) (*services.SMSResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)
	if s.err != nil {
		return nil, s.err
	}
	return &services.SMSResult{Provider: "recording", Data: json.RawMessage(`{"return":true}`)}, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type testServer struct {
	app      *fiber.App
	mr       *miniredis.Miniredis
	store    *storage.MemoryStore
	sessions *services.BrowseSessionManager
}

func newTestServer(t *testing.T, sender services.SMSSender) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := storage.NewMemoryStore()
	growers := storage.NewMemoryGrowerStore()
	registry := services.NewTemplateRegistry(services.DLTTemplates)
	sessions := services.NewBrowseSessionManager(store, time.Hour, nil)

	checks := map[string]handlers.Checker{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}

	app := fiber.New()
	routes.SetupRoutes(app, routes.Handlers{
		Health: handlers.NewHealthHandler("test", "memory", "recording", sessions, checks),
		OTP: handlers.NewOTPHandler(
			services.NewOTPService(storage.NewRedisOTPCache(client), sender, "ZIRAAT", "191100", nil), nil),
		SMS: handlers.NewSMSHandler(sender, registry,
			services.NewTemplateService(registry, sender, nil), nil),
		Bookings: handlers.NewBookingHandler(services.NewBookingService(store, nil), sessions, nil),
		Growers:  handlers.NewGrowerHandler(services.NewGrowerService(growers, nil), nil),
	}, testAdminKey, nil)

	return &testServer{app: app, mr: mr, store: store, sessions: sessions}
}

type request struct {
	method  string
	path    string
	body    any
	session string
	admin   bool
}

func (s *testServer) do(t *testing.T, r request) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.session != "" {
		req.Header.Set(handlers.SessionHeader, r.session)
	}
	if r.admin {
		req.Header.Set("Authorization", "Bearer "+testAdminKey)
	}

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// storedOTP reads the code the service stored for number
func (s *testServer) storedOTP(t *testing.T, number string) models.OTPRecord {
	t.Helper()
	raw, err := s.mr.Get(storage.OTPKey(number))
	require.NoError(t, err)
	var record models.OTPRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	return record
}
