package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"payout-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	headerSignature = "X-Signature"
	headerTimestamp = "X-Timestamp"
)

// SignatureMiddleware authenticates withdrawal submissions from the
// request-intake collaborator. The signature is HMAC-SHA256 over the
// timestamp concatenated with the raw request body, hex encoded.
type SignatureMiddleware struct {
	cfg    *config.AuthConfig
	logger *logrus.Logger
}

// NewSignatureMiddleware creates a new SignatureMiddleware instance
func NewSignatureMiddleware(cfg *config.AuthConfig, logger *logrus.Logger) *SignatureMiddleware {
	return &SignatureMiddleware{cfg: cfg, logger: logger}
}

// RequireSignature rejects the request before any handler runs when the
// timestamp is outside the allowed skew or the signature does not match.
func (m *SignatureMiddleware) RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(headerSignature)
		timestamp := c.GetHeader(headerTimestamp)
		if signature == "" || timestamp == "" {
			m.reject(c, "missing signature headers")
			return
		}

		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			m.reject(c, "malformed timestamp")
			return
		}

		skew := time.Duration(m.cfg.TimestampSkewSeconds) * time.Second
		age := time.Since(time.Unix(ts, 0))
		if age > skew || age < -skew {
			m.reject(c, "timestamp outside allowed window")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			m.reject(c, "unreadable request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(m.cfg.WithdrawSecret))
		mac.Write([]byte(timestamp))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(signature)) {
			m.reject(c, "signature mismatch")
			return
		}

		c.Next()
	}
}

func (m *SignatureMiddleware) reject(c *gin.Context, reason string) {
	m.logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"reason": reason,
	}).Warn("signature authentication failed")

	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "authentication failed",
	})
	c.Abort()
}
