package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/auth"
)

const testSecret = "test-secret-0123456789"

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), BearerAuth(auth.NewVerifier(testSecret, "")))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func TestBearerAuth_AcceptsValidToken(t *testing.T) {
	tok, err := auth.Issue(testSecret, "", "creator-42", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	authRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "creator-42" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestBearerAuth_Rejects(t *testing.T) {
	forged, _ := auth.Issue("other-secret", "", "creator-42", time.Minute)
	expired, _ := auth.Issue(testSecret, "", "creator-42", -time.Minute)

	cases := map[string]string{
		"missing":  "",
		"basic":    "Basic dXNlcjpwYXNz",
		"forged":   "Bearer " + forged,
		"expired":  "Bearer " + expired,
		"garbage":  "Bearer not.a.jwt",
		"no token": "Bearer ",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		authRouter().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid JSON: %v", name, err)
		}
		if body["success"] != false || body["code"] != "unauthorized" {
			t.Fatalf("%s: unexpected body %v", name, body)
		}
	}
}
