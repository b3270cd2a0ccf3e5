package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"payout-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signatureTestRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.AuthConfig{WithdrawSecret: secret, TimestampSkewSeconds: 300}
	mw := NewSignatureMiddleware(cfg, logger)

	engine := gin.New()
	engine.POST("/signed", mw.RequireSignature(), func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(body))
	})
	return engine
}

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRequireSignatureAcceptsValidRequest(t *testing.T) {
	engine := signatureTestRouter(t, "topsecret")

	body := []byte(`{"amount":"500"}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/signed", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", sign("topsecret", timestamp, body))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// The middleware consumed and restored the body for the handler.
	assert.Equal(t, string(body), rec.Body.String())
}

func TestRequireSignatureRejectsBadSignature(t *testing.T) {
	engine := signatureTestRouter(t, "topsecret")

	body := []byte(`{"amount":"500"}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/signed", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", sign("wrong-secret", timestamp, body))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSignatureRejectsTamperedBody(t *testing.T) {
	engine := signatureTestRouter(t, "topsecret")

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := sign("topsecret", timestamp, []byte(`{"amount":"500"}`))

	req := httptest.NewRequest(http.MethodPost, "/signed", bytes.NewReader([]byte(`{"amount":"9999"}`)))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signature)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSignatureRejectsStaleTimestamp(t *testing.T) {
	engine := signatureTestRouter(t, "topsecret")

	body := []byte(`{}`)
	for _, ts := range []int64{
		time.Now().Add(-10 * time.Minute).Unix(),
		time.Now().Add(10 * time.Minute).Unix(),
	} {
		timestamp := strconv.FormatInt(ts, 10)
		req := httptest.NewRequest(http.MethodPost, "/signed", bytes.NewReader(body))
		req.Header.Set("X-Timestamp", timestamp)
		req.Header.Set("X-Signature", sign("topsecret", timestamp, body))

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, fmt.Sprintf("timestamp %d", ts))
	}
}

func TestRequireSignatureRejectsMissingHeaders(t *testing.T) {
	engine := signatureTestRouter(t, "topsecret")

	req := httptest.NewRequest(http.MethodPost, "/signed", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
