package auth

import "github.com/golang-jwt/jwt/v5"

// Token purposes, carried in the "typ" claim. Parsers reject a token minted
// for a different purpose.
const (
	PurposeAccess            = "access"
	PurposeEmailVerification = "email_verification"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID int64
	Email  string
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Purpose string `json:"typ"`
	jwt.RegisteredClaims
}

// VerificationClaims is embedded in the link mailed after registration.
type VerificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"typ"`
	jwt.RegisteredClaims
}
