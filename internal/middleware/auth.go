package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// UserIDKey holds the authenticated user id (uint) in the gin context.
const UserIDKey = "user_id"

// Claims is the bearer token payload issued by the auth service.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// LoadUser resolves the caller from a bearer JWT or, failing that, from the
// session cookie. Anonymous requests pass through untouched.
func LoadUser(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := fromBearer(c, jwtSecret); ok {
			c.Set(UserIDKey, uid)
		} else if uid, ok := fromSession(c); ok {
			c.Set(UserIDKey, uid)
		}
		c.Next()
	}
}

// AuthRequired rejects requests without an identity.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "login required",
				"code":  "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// CurrentUserID returns 0 for anonymous callers.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if uid, ok := v.(uint); ok {
			return uid
		}
	}
	return 0
}

func fromBearer(c *gin.Context, secret string) (uint, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		return 0, false
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return 0, false
	}
	return claims.UserID, true
}

func fromSession(c *gin.Context) (uint, bool) {
	// 没挂 sessions 中间件时 sessions.Default 会 panic
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return 0, false
	}
	switch v := sessions.Default(c).Get("user_id").(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	}
	return 0, false
}
