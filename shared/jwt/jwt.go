package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	internal_errors "github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by every access token. Id is the token id (jti) used for
// revocation and re-authentication tracking.
type Claims struct {
	Uid      string
	Email    string
	Name     string
	Id       string
	IssuedAt time.Time
	Expires  time.Time
}

type JwtService interface {
	NewToken(uid, email, name string) (string, Claims, error)
	DecodeToken(jwtStr string) (Claims, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

func New(secretKey string, ttl time.Duration) *Jwt {
	return &Jwt{secretKey: secretKey, ttl: ttl, now: time.Now}
}

func (j *Jwt) NewToken(uid, email, name string) (string, Claims, error) {
	now := j.now()
	c := Claims{
		Uid:      uid,
		Email:    email,
		Name:     name,
		Id:       uuid.NewString(),
		IssuedAt: now,
		Expires:  now.Add(j.ttl),
	}
	claims := jwt.MapClaims{
		"uid":   c.Uid,
		"email": c.Email,
		"name":  c.Name,
		"jti":   c.Id,
		"iat":   c.IssuedAt.Unix(),
		"exp":   c.Expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", Claims{}, errors.New("Can't create token")
	}
	return tokenString, c, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (Claims, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		return Claims{}, invalidToken("Invalid token signature")
	}
	if !token.Valid {
		return Claims{}, invalidToken("Invalid access token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, invalidToken("Invalid token claims")
	}
	var c Claims
	if c.Uid, ok = mc["uid"].(string); !ok || c.Uid == "" {
		return Claims{}, invalidToken("Invalid token claims")
	}
	if c.Id, ok = mc["jti"].(string); !ok || c.Id == "" {
		return Claims{}, invalidToken("Invalid token claims")
	}
	c.Email, _ = mc["email"].(string)
	c.Name, _ = mc["name"].(string)
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Expires = exp.Time
	}
	return c, nil
}

func invalidToken(msg string) error {
	return &internal_errors.ErrorWithStatusCode{Message: msg, StatusCode: http.StatusUnauthorized, Code: "auth/invalid-token"}
}
