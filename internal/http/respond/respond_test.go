package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/services"
	"github.com/clipr-io/clipr/internal/token"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %s not an envelope: %v", w.Body.String(), err)
	}
	return w, env
}

func TestOK_Envelope(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		OK(c, http.StatusCreated, "Created!", gin.H{"id": "x"})
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if !env.Success || env.Message != "Created!" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Error != "" || env.StatusCode != 0 {
		t.Errorf("success envelope carries failure fields: %+v", env)
	}
	if env.Data == nil {
		t.Error("data missing")
	}
}

func TestFail_Envelope(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		Fail(c, http.StatusNotFound, "Short URL not found.")
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if env.Success || env.Message != "Short URL not found." || env.StatusCode != http.StatusNotFound {
		t.Errorf("envelope = %+v", env)
	}
}

func TestFailDetail_VerboseGate(t *testing.T) {
	SetVerbose(true)
	_, env := serve(t, func(c *gin.Context) {
		FailDetail(c, http.StatusInternalServerError, "Something went wrong.", "db: disk I/O error")
	})
	if env.Error != "db: disk I/O error" {
		t.Errorf("verbose detail = %q, want internal text", env.Error)
	}

	SetVerbose(false)
	defer SetVerbose(true)
	_, env = serve(t, func(c *gin.Context) {
		FailDetail(c, http.StatusInternalServerError, "Something went wrong.", "db: disk I/O error")
	})
	if env.Error != "" {
		t.Errorf("production envelope leaks detail: %q", env.Error)
	}
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.Validationf("Invalid URL format."), http.StatusBadRequest},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"auth required", services.ErrAuthRequired, http.StatusUnauthorized},
		{"invalid token", token.ErrInvalidToken, http.StatusForbidden},
		{"link not found", services.ErrLinkNotFound, http.StatusNotFound},
		{"user not found", services.ErrUserNotFound, http.StatusNotFound},
		{"email taken", services.ErrEmailTaken, http.StatusConflict},
		{"code exhausted", services.ErrCodeExhausted, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := serve(t, func(c *gin.Context) { Error(c, tt.err) })
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if env.Success {
				t.Error("failure envelope marked success")
			}
			if env.StatusCode != tt.want {
				t.Errorf("statusCode field = %d, want %d", env.StatusCode, tt.want)
			}
		})
	}
}

func TestError_ValidationMessagePassesThrough(t *testing.T) {
	_, env := serve(t, func(c *gin.Context) {
		Error(c, services.Validationf("Password must be at least %d characters long.", 6))
	})
	if env.Message != "Password must be at least 6 characters long." {
		t.Errorf("message = %q", env.Message)
	}
}
