package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

func TestGenerateAndValidate(t *testing.T) {
	priv, pub := testKeys(t)
	svc, err := NewAuthService(priv, pub, "idp", time.Minute)
	require.NoError(t, err)

	token, err := svc.GenerateToken("user-42")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.UserID())
	require.Equal(t, "idp", claims.Issuer)
}

func TestValidateToken_Rejects(t *testing.T) {
	priv, pub := testKeys(t)
	svc, err := NewAuthService(priv, pub, "idp", time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken("")
	require.Error(t, err)
	_, err = svc.ValidateToken("not-a-jwt")
	require.Error(t, err)

	expired, err := NewAuthService(priv, pub, "idp", -time.Minute)
	require.NoError(t, err)
	token, err := expired.GenerateToken("u")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)

	other, err := NewAuthService(priv, pub, "someone-else", time.Minute)
	require.NoError(t, err)
	token, err = other.GenerateToken("u")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodRS256, TokenClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    "idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := refresh.SignedString(svc.privateKey)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err = hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestVerifyOnly(t *testing.T) {
	_, pub := testKeys(t)
	svc, err := NewAuthService(nil, pub, "", time.Minute)
	require.NoError(t, err)

	_, err = svc.GenerateToken("u")
	require.ErrorIs(t, err, ErrSigningDisabled)

	_, err = NewAuthService(nil, nil, "", time.Minute)
	require.Error(t, err)
}
