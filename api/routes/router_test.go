package routes

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/internal/users"
	pkgAuth "github.com/angelmondragon/contactbook-backend/pkg/auth"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: 1, Email: req.Email}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (stubAuthService) VerifyEmail(ctx context.Context, token string) error { return nil }

func (stubAuthService) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) error {
	return nil
}

func (stubAuthService) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return nil
}

type stubContactService struct {
	owner string
}

func (s *stubContactService) Add(ctx context.Context, ownerEmail string, fields contacts.Fields) (*contacts.ContactDTO, error) {
	s.owner = ownerEmail
	return &contacts.ContactDTO{ID: 1}, nil
}

func (s *stubContactService) List(ctx context.Context, ownerEmail string, q contacts.ListQuery) ([]contacts.ContactDTO, error) {
	s.owner = ownerEmail
	return []contacts.ContactDTO{}, nil
}

func (s *stubContactService) Update(ctx context.Context, ownerEmail string, id int64, patch contacts.Patch) (*contacts.ContactDTO, error) {
	s.owner = ownerEmail
	return &contacts.ContactDTO{ID: id}, nil
}

func (s *stubContactService) Delete(ctx context.Context, ownerEmail string, id int64) error {
	s.owner = ownerEmail
	return nil
}

func (s *stubContactService) BatchUpsert(ctx context.Context, ownerEmail string, items []contacts.BatchItem) (*contacts.BatchResult, error) {
	s.owner = ownerEmail
	return &contacts.BatchResult{}, nil
}

func (s *stubContactService) ExportAll(ctx context.Context, ownerEmail string) ([]contacts.ExportRow, error) {
	s.owner = ownerEmail
	return nil, nil
}

func (s *stubContactService) Import(ctx context.Context, ownerEmail string, rows iter.Seq2[map[string]string, error]) (*contacts.ImportResult, error) {
	s.owner = ownerEmail
	return &contacts.ImportResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:         "dev",
			Port:        "0",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "contactbook-test",
			ExpirationMinutes: 5,
		},
		Import: config.ImportConfig{MaxUploadMB: 1, MaxRows: 10},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubContactService, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	svc := &stubContactService{}
	h := NewRouter(
		cfg,
		logger.Nop(),
		stubPinger{},
		nil,
		metrics.NewHTTPMetrics(reg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		stubAuthService{},
		svc,
	)
	return h, svc, cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h, _, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
}

func TestAuthRoutesArePublic(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"email":"a@example.com","password":"secret1"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactRoutesRequireToken(t *testing.T) {
	h, svc, _ := newTestRouter(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.owner)
}

func TestContactRoutesUseTokenEmail(t *testing.T) {
	h, svc, cfg := newTestRouter(t)
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: 3, Email: "owner@example.com"})
	require.NoError(t, err)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/v1/contacts", "", http.StatusOK},
		{http.MethodPatch, "/api/v1/contacts/4", `{"name":"New"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/contacts/4", "", http.StatusOK},
		{http.MethodPost, "/api/v1/contacts/batch", `{"contacts":[]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/contacts/export", "", http.StatusOK},
	}
	for _, tc := range cases {
		svc.owner = ""
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer "+token)

		rec := serve(h, req)

		assert.Equal(t, tc.status, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
		assert.Equal(t, "owner@example.com", svc.owner, "%s %s", tc.method, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/contacts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(h, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t)
	serve(h, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
