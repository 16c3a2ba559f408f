package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"drying_oven/internal/logger"
	"drying_oven/internal/service"

	"github.com/gin-gonic/gin"
)

// secureRouter mounts requireOperator in front of an endpoint echoing the operator id.
func secureRouter(auth *mockAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{Authorization: auth}, nil)
	r.GET("/secure", h.requireOperator, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operatorId": operatorID(c)})
	})
	return r
}

func TestRequireOperator_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		header   string
		parseErr error
		errMsg   string
	}{
		{name: "no credentials", target: "/secure", errMsg: "missing Authorization header"},
		{name: "wrong scheme", target: "/secure", header: "Token abc", errMsg: "invalid Authorization header format"},
		{name: "bearer without token", target: "/secure", header: "Bearer ", errMsg: "invalid Authorization header format"},
		{name: "header beats query", target: "/secure?access_token=good", header: "Basic x", errMsg: "invalid Authorization header format"},
		{name: "token rejected", target: "/secure", header: "Bearer expired", parseErr: errors.New("token is expired"), errMsg: "invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 5, parseErr: tc.parseErr}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			secureRouter(auth).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status=%d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg {
				t.Fatalf("error=%q, want %q", out.Error, tc.errMsg)
			}
		})
	}
}

func TestRequireOperator_Accepts(t *testing.T) {
	cases := []struct {
		name   string
		target string
		header string
	}{
		{"bearer header", "/secure", "Bearer good-token"},
		{"lowercase scheme", "/secure", "bearer good-token"},
		{"query token", "/secure?access_token=good-token", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 123}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			secureRouter(auth).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status=%d; body=%s", w.Code, w.Body.String())
			}
			var resp struct {
				OperatorID int `json:"operatorId"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.OperatorID != 123 || auth.lastParseToken != "good-token" {
				t.Fatalf("operator=%d token=%q", resp.OperatorID, auth.lastParseToken)
			}
		})
	}
}

func TestObserveRequests_LogsRoutePatternOnly(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{Authorization: &mockAuth{parseErr: errors.New("bad token")}},
		logger.New(logger.Options{Level: logger.DebugLevel, Format: logger.JSONFormat, Output: &buf}))
	r := h.InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oven/state?access_token=secret-token", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if json.Unmarshal([]byte(line), &m) == nil && m["msg"] == "http_request" {
			entry = m
		}
	}
	if entry == nil {
		t.Fatalf("no http_request entry in %q", buf.String())
	}
	if entry["path"] != "/api/v1/oven/state" || entry["status"] != float64(http.StatusUnauthorized) || entry["level"] != "WARN" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if strings.Contains(buf.String(), "secret-token") {
		t.Fatalf("token leaked into the log: %s", buf.String())
	}
}
