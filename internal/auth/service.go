package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/internal/users"
	pkgAuth "github.com/angelmondragon/contactbook-backend/pkg/auth"
	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/mailer"
	"github.com/angelmondragon/contactbook-backend/pkg/security"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"github.com/golang-jwt/jwt/v5"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	verifyEmailPath           = "/api/v1/auth/verify-email"
	tokenTypeBearer           = "Bearer"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userRepository interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	MarkVerified(ctx context.Context, email string) error
	IssueOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	ConsumeOTPAndResetPassword(ctx context.Context, email, suppliedCode, newPasswordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	Hasher    passwordHasher
	Mailer    mailer.Mailer
	Logger    *logger.Logger
	JWTConfig config.JWTConfig
	OTPConfig config.OTPConfig
	BaseURL   string
	Now       func() time.Time
}

type service struct {
	users   userRepository
	hasher  passwordHasher
	mailer  mailer.Mailer
	logg    *logger.Logger
	jwtCfg  config.JWTConfig
	otpCfg  config.OTPConfig
	baseURL string
	now     func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(params.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	otpCfg := params.OTPConfig
	if otpCfg.Length <= 0 {
		otpCfg.Length = security.DefaultOTPLength
	}
	if otpCfg.TTL <= 0 {
		otpCfg.TTL = time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:   params.UserRepo,
		hasher:  params.Hasher,
		mailer:  params.Mailer,
		logg:    logg,
		jwtCfg:  params.JWTConfig,
		otpCfg:  otpCfg,
		baseURL: baseURL,
		now:     now,
	}, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// Register creates an unverified account and mails the verification link.
// A failed send is logged; the account stays registered.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	req.Email = validation.NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.CreateUser(ctx, req.Email, hash)
	if err != nil {
		return nil, err
	}

	token, err := pkgAuth.MintVerificationToken(s.jwtCfg, s.clock(), user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint verification token")
	}
	link := s.baseURL + verifyEmailPath + "?token=" + url.QueryEscape(token)
	s.deliver(ctx, mailer.VerificationEmail(user.Email, link))

	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   s.jwtCfg.ExpirationMinutes * 60,
		User:        users.FromModel(user),
	}, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	claims, err := pkgAuth.ParseVerificationToken(s.jwtCfg, token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return pkgerrors.Wrap(pkgerrors.CodeExpired, err, "verification link expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid verification token")
	}
	return s.users.MarkVerified(ctx, claims.Email)
}

// ForgotPassword issues a fresh OTP and mails it. Unknown addresses get the
// same outcome as known ones so the endpoint cannot be used to probe
// accounts.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	req.Email = validation.NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return err
	}

	code, err := security.GenerateOTP(s.otpCfg.Length)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	expiresAt := s.clock().Add(s.otpCfg.TTL)
	if err := s.users.IssueOTP(ctx, req.Email, code, expiresAt); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.logg.Info(s.logg.WithUserEmail(ctx, req.Email), "password reset requested for unknown email")
			return nil
		}
		return err
	}

	s.deliver(ctx, mailer.PasswordResetEmail(req.Email, code, s.otpCfg.TTL.String()))
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Email = validation.NormalizeEmail(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validation.Struct(req); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return s.users.ConsumeOTPAndResetPassword(ctx, req.Email, req.OTP, hash)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := validation.NormalizeEmail(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.GetUserByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) deliver(ctx context.Context, msg mailer.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_email": msg.To,
			"template":   msg.Template,
		})
		s.logg.Error(ctx, "email delivery failed", err)
	}
}
