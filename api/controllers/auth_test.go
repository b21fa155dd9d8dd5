package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/contactbook-backend/internal/auth"
	"github.com/angelmondragon/contactbook-backend/internal/users"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	err error

	registered auth.RegisterRequest
	token      string
	forgot     auth.ForgotPasswordRequest
	reset      auth.ResetPasswordRequest
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.registered = req
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: 7, Email: req.Email}, nil
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.LoginResponse{
		AccessToken: "access-token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		User:        &users.UserDTO{ID: 7, Email: req.Email},
	}, nil
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, token string) error {
	s.token = token
	return s.err
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) error {
	s.forgot = req
	return s.err
}

func (s *stubAuthService) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	s.reset = req
	return s.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()

	AuthRegister(svc, logger.Nop()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a@example.com", svc.registered.Email)

	var user users.UserDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &user))
	assert.Equal(t, int64(7), user.ID)
}

func TestAuthRegisterConflict(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()

	AuthRegister(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), decodeEnvelope(t, rec).Error.Code)
}

func TestAuthRegisterRejectsUnknownFields(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"a@example.com","password":"secret1","admin":true}`))
	rec := httptest.NewRecorder()

	AuthRegister(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.registered.Email)
}

func TestAuthLogin(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, logger.Nop()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
}

func TestAuthLoginRequiresFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com"}`))
	rec := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"wrong-pass"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeEnvelope(t, rec).Error.Message)
}

func TestAuthVerifyEmailPassesToken(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=abc.def", nil)
	rec := httptest.NewRecorder()

	AuthVerifyEmail(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def", svc.token)
}

func TestAuthVerifyEmailExpired(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeExpired, "verification link expired")}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=abc", nil)
	rec := httptest.NewRecorder()

	AuthVerifyEmail(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestAuthForgotPasswordGenericMessage(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/forgot-password", strings.NewReader(`{"email":"ghost@example.com"}`))
	rec := httptest.NewRecorder()

	AuthForgotPassword(svc, logger.Nop()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ghost@example.com", svc.forgot.Email)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), forgotPasswordMessage)
}

func TestAuthResetPassword(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password", strings.NewReader(`{"email":"a@example.com","otp":"123456","new_password":"newsecret"}`))
	rec := httptest.NewRecorder()

	AuthResetPassword(svc, logger.Nop()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123456", svc.reset.OTP)
	assert.Equal(t, "newsecret", svc.reset.NewPassword)
}

func TestAuthResetPasswordMismatch(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeForbidden, "reset code does not match")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password", strings.NewReader(`{"email":"a@example.com","otp":"000000","new_password":"newsecret"}`))
	rec := httptest.NewRecorder()

	AuthResetPassword(svc, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthHandlersWithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	AuthLogin(nil, logger.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
