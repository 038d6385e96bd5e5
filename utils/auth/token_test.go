package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	tok, err := s.Sign(Claims{UserID: 7, Name: "Ana", Staff: true})
	require.NoError(t, err)

	c, err := s.Parse("Bearer " + tok)
	require.NoError(t, err)
	require.Equal(t, uint(7), c.UserID)
	require.True(t, c.Staff)
	require.False(t, c.Seller)
	require.Equal(t, "7", c.Subject)
}

func TestParse_Rejects(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	tok, err := s.Sign(Claims{UserID: 1})
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := s.Sign(Claims{UserID: 1})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongAlgorithm(t *testing.T) {
	c := Claims{UserID: 3}
	c.Issuer = issuer
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewSigner("secret", time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
