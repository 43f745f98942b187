package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey signs session and reset tokens. Loaded from the environment
// with a development fallback so the server can run without a .env file.
func jwtSecretKey() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("smart-farm-dev-secret-change-me")
}

// GenerateToken creates a new session JWT for a given user ID.
// Tokens expire after 7 days, matching the session cookie lifetime of the
// web frontend.
func GenerateToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey())
}

// GenerateResetToken creates a short-lived token that authorizes exactly one
// password reset. The "purpose" claim keeps it from being usable as a session.
func GenerateResetToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey())
}

// ValidateToken parses and validates a session JWT.
// It returns the user ID (subject) if the token is valid.
func ValidateToken(tokenString string) (int64, error) {
	claims, err := parseClaims(tokenString)
	if err != nil {
		return 0, err
	}

	// A reset token must never pass as a session token.
	if purpose, _ := claims["purpose"].(string); purpose != "" {
		return 0, errors.New("not a session token")
	}

	return subjectID(claims)
}

// ValidateResetToken parses a password-reset token and returns the user ID.
func ValidateResetToken(tokenString string) (int64, error) {
	claims, err := parseClaims(tokenString)
	if err != nil {
		return 0, err
	}

	if purpose, _ := claims["purpose"].(string); purpose != "password_reset" {
		return 0, errors.New("not a password reset token")
	}

	return subjectID(claims)
}

func parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecretKey(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func subjectID(claims jwt.MapClaims) (int64, error) {
	// JSON numbers decode as float64.
	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, errors.New("invalid subject claim")
	}
	return int64(userIDFloat), nil
}
