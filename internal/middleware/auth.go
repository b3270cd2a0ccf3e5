package middleware

import (
	"net/http"
	"strings"
	"time"

	"payout-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
)

// OperatorClaims are the JWT claims carried by operator bearer tokens.
type OperatorClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// AuthMiddleware guards operator routes with JWT bearer tokens and, when a
// TOTP secret is configured, a one-time code on sensitive transitions.
type AuthMiddleware struct {
	cfg    *config.AuthConfig
	logger *logrus.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(cfg *config.AuthConfig, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, logger: logger}
}

// RequireAuth validates the Authorization bearer token and stores the
// operator name in the request context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.reject(c, "missing or malformed Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims := &OperatorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			a.reject(c, "invalid or expired token")
			return
		}

		c.Set("operator", claims.Operator)
		c.Next()
	}
}

// RequireOTP validates the X-OTP-Code header against the configured TOTP
// secret. A no-op when no secret is configured.
func (a *AuthMiddleware) RequireOTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.cfg.TOTPSecret == "" {
			c.Next()
			return
		}

		code := c.GetHeader("X-OTP-Code")
		if code == "" || !totp.Validate(code, a.cfg.TOTPSecret) {
			a.reject(c, "missing or invalid one-time code")
			return
		}
		c.Next()
	}
}

// IssueToken signs a short-lived operator token. Used by the login handler
// and by tests.
func (a *AuthMiddleware) IssueToken(operator string, ttl time.Duration) (string, error) {
	claims := OperatorClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *AuthMiddleware) reject(c *gin.Context, reason string) {
	a.logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"reason": reason,
	}).Warn("operator authentication failed")

	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "authentication failed",
	})
	c.Abort()
}
