package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// Claims are the identity claims carried by bearer tokens
type Claims struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Company    string `json:"company"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 bearer tokens
type Authenticator struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewAuthenticator creates an authenticator; ttl is the lifetime of issued tokens
func NewAuthenticator(signingKey, issuer string, ttl time.Duration) (*Authenticator, error) {
	if len(signingKey) < 16 {
		return nil, fmt.Errorf("jwt signing key must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{signingKey: []byte(signingKey), issuer: issuer, ttl: ttl}, nil
}

// IssueToken signs a token for the user
func (a *Authenticator) IssueToken(user *entity.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.ttl)

	claims := Claims{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
		Company:    user.Company,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns the user it identifies
func (a *Authenticator) Parse(tokenString string) (*entity.User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &entity.User{
		ID:         claims.UserID,
		Name:       claims.Name,
		Email:      claims.Email,
		Role:       claims.Role,
		Department: claims.Department,
		Company:    claims.Company,
	}, nil
}

// Middleware rejects requests without a valid bearer token and
// stores the acting user in the gin context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		user, err := a.Parse(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Code:    "UNAUTHORIZED",
		Error:   msg,
	})
}

// currentUser returns the authenticated user set by the middleware
func currentUser(c *gin.Context) *entity.User {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}
