package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthService struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

func NewAuthService(secret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		JWTSecret:   secret,
		TokenExpiry: tokenExpiry,
	}
}

func (a *AuthService) HashAPISecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *AuthService) CompareHashAndSecret(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// GenerateAPICredentials returns a random key/secret pair for a new issuer.
// The secret is only shown once; the stored value is its bcrypt hash.
func GenerateAPICredentials() (key string, secret string, err error) {
	kb := make([]byte, 18)
	if _, err = rand.Read(kb); err != nil {
		return "", "", err
	}
	sb := make([]byte, 32)
	if _, err = rand.Read(sb); err != nil {
		return "", "", err
	}
	return base64.URLEncoding.EncodeToString(kb), base64.URLEncoding.EncodeToString(sb), nil
}

func (a *AuthService) GenerateToken(issuerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": issuerID,
		"exp": time.Now().Add(a.TokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token: 'sub' claim missing or not a string")
		}
		return sub, nil
	}

	return "", errors.New("invalid token")
}
