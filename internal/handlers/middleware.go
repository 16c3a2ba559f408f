package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"drying_oven/internal/metrics"

	"github.com/gin-gonic/gin"
)

// operatorCtxKey is where the authenticated operator id lives in the gin context.
const operatorCtxKey = "operatorId"

// accessTokenParam carries the token for kiosk displays that cannot set headers.
const accessTokenParam = "access_token"

var (
	errNoCredentials = errors.New("missing Authorization header")
	errBadScheme     = errors.New("invalid Authorization header format")
)

// bearerToken takes the token from "Authorization: Bearer <t>" (scheme is
// case-insensitive) or, without a header, from ?access_token=.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if t := c.Query(accessTokenParam); t != "" {
			return t, nil
		}
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadScheme
	}
	return token, nil
}

// requireOperator rejects requests without a valid operator token.
func (h *Handler) requireOperator(c *gin.Context) {
	token, err := bearerToken(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	id, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("operator_token_rejected", "err", err, "remote", c.ClientIP(), "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Set(operatorCtxKey, id)
	c.Next()
}

// operatorID returns the authenticated operator, or 0 outside the protected group.
func operatorID(c *gin.Context) int {
	return c.GetInt(operatorCtxKey)
}

// observeRequests logs and counts every request by route pattern, so tokens
// passed in the query never reach the log.
func (h *Handler) observeRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := c.Writer.Status()
	elapsed := time.Since(start)
	metrics.RecordHTTPRequest(c.Request.Method, path, status, elapsed)

	if h.log == nil {
		return
	}
	kv := []interface{}{
		"method", c.Request.Method,
		"path", path,
		"status", status,
		"duration", elapsed,
		"client_ip", c.ClientIP(),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.log.Errorw("http_request", kv...)
	case status >= http.StatusBadRequest:
		h.log.Warnw("http_request", kv...)
	default:
		h.log.Debugw("http_request", kv...)
	}
}
