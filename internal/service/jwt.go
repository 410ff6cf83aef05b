package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

func InitJWT() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// SessionClaims is the identity carried by a session token. TgID is included
// so handlers can recreate a missing ledger record without re-verifying the
// original init data.
type SessionClaims struct {
	UserID    int64
	TgID      int64
	Username  string
	FirstName string
}

func GenerateJWT(claims SessionClaims) (string, error) {
	now := time.Now().Unix()
	mapClaims := jwt.MapClaims{
		"user_id":    claims.UserID,
		"tg_id":      claims.TgID,
		"username":   claims.Username,
		"first_name": claims.FirstName,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
		"iat":        now,
		"nbf":        now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if exp, ok := mapClaims["exp"].(float64); ok {
		if int64(exp) < now {
			return nil, errors.New("token expired")
		}
	}
	if nbf, ok := mapClaims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return nil, errors.New("token not valid yet")
		}
	}

	userID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, errors.New("user_id not found")
	}

	claims := &SessionClaims{UserID: int64(userID)}
	if tgID, ok := mapClaims["tg_id"].(float64); ok {
		claims.TgID = int64(tgID)
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if firstName, ok := mapClaims["first_name"].(string); ok {
		claims.FirstName = firstName
	}

	return claims, nil
}
