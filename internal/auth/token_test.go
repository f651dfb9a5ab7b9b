// Copyright 2026 The Tenantcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// TestPurpose: Validates access token issuance and verification.
// Scope: Unit Test
// Security: Token integrity (CWE-347)
// Expected: Claims round-trip; memberships are never null; expiry honours the TTL.
// Test Case ID: TOK-01
func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testKey, "tenantcore", 0)
	assert.Equal(t, DefaultTokenTTL, issuer.TTL())

	token, exp, err := issuer.Issue("user-1", "a@example.com", nil)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotNil(t, claims.Memberships)
	assert.Empty(t, claims.Memberships)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"memberships":[]`)

	token, _, err = issuer.Issue("user-1", "a@example.com", []string{"t1", "t2"})
	require.NoError(t, err)
	claims, err = issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, claims.Memberships)
}

// TestPurpose: Validates rejection of expired, mis-signed and wrong-algorithm tokens.
// Scope: Unit Test
// Security: Token forgery (CWE-347), algorithm confusion
// Expected: Every tampered token fails with ErrInvalidToken.
// Test Case ID: TOK-02
func TestTokenIssuer_Rejections(t *testing.T) {
	issuer := NewTokenIssuer(testKey, "tenantcore", time.Hour)

	expired := NewTokenIssuer(testKey, "tenantcore", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := expired.Issue("user-1", "a@example.com", nil)
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), "tenantcore", time.Hour)
	token, _, err = other.Issue("user-1", "a@example.com", nil)
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenIssuer(testKey, "someone-else", time.Hour)
	token, _, err = wrongIssuer.Issue("user-1", "a@example.com", nil)
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "tenantcore",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs384 := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "tenantcore",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := hs384.SignedString(testKey)
	require.NoError(t, err)
	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "tenantcore"},
	})
	signed, err = noExp.SignedString(testKey)
	require.NoError(t, err)
	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
