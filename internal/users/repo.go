package users

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/security"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"gorm.io/gorm"
)

// Repository is the account store. Every lookup is keyed by the normalized
// email; callers never address users by id from outside the process.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Repository)

// WithClock overrides the time source used for timestamps and OTP expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, now: r.now}
}

func (r *Repository) clock() time.Time {
	return r.now().UTC()
}

// CreateUser inserts an unverified account with no pending OTP.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	now := r.clock()
	user := &models.User{
		Email:        validation.NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, emailTaken(err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}

// GetUserByEmail resolves an email to its account.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", validation.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return &user, nil
}

// MarkVerified sets is_verified. Verifying twice is not an error.
func (r *Repository) MarkVerified(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, email, "verify user", map[string]any{
		"is_verified": true,
	})
}

// IssueOTP stores a reset code and its expiry, replacing any pending one.
func (r *Repository) IssueOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp code is required")
	}
	return r.updateByEmail(ctx, email, "issue otp", map[string]any{
		"otp_code":       code,
		"otp_expires_at": expiresAt.UTC(),
	})
}

// ConsumeOTPAndResetPassword checks the supplied code against the pending one
// and, when it matches and has not expired, swaps in the new password hash and
// clears the OTP in a single statement. The update is guarded by the code that
// was checked, so a concurrent re-issue makes this call fail instead of
// consuming the newer code.
func (r *Repository) ConsumeOTPAndResetPassword(ctx context.Context, email, suppliedCode, newPasswordHash string) error {
	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.HasPendingOTP() {
		return otpNotFound()
	}
	if !security.OTPEqual(*user.OTPCode, suppliedCode) {
		return otpMismatch()
	}
	now := r.clock()
	if now.After(*user.OTPExpiresAt) {
		return otpExpired()
	}

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND otp_code = ?", user.ID, *user.OTPCode).
		Updates(map[string]any{
			"password_hash":  newPasswordHash,
			"otp_code":       nil,
			"otp_expires_at": nil,
			"updated_at":     now,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reset password")
	}
	if res.RowsAffected == 0 {
		return otpNotFound()
	}
	return nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at.UTC()).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	return nil
}

func (r *Repository) updateByEmail(ctx context.Context, email, op string, fields map[string]any) error {
	fields["updated_at"] = r.clock()
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", validation.NormalizeEmail(email)).
		Updates(fields)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, op)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}
