package security_test

import (
	"testing"

	"github.com/angelmondragon/contactbook-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	code, err := security.GenerateOTP(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "non digit %q in %q", r, code)
	}

	code, err = security.GenerateOTP(0)
	require.NoError(t, err)
	assert.Len(t, code, security.DefaultOTPLength)

	_, err = security.GenerateOTP(13)
	assert.Error(t, err)
}

func TestOTPEqual(t *testing.T) {
	assert.True(t, security.OTPEqual("012345", "012345"))
	assert.False(t, security.OTPEqual("012345", "12345"))
	assert.False(t, security.OTPEqual("012345", "012346"))
	assert.False(t, security.OTPEqual("", "0"))
}
